// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// generationSystemTmpl is the system prompt shared by both modes.
var generationSystemTmpl = template.Must(template.New("system").Parse(`You are an SEO content writer for a game catalog website. Write in the language identified by the locale code "{{.Locale}}".

Respond with a single JSON object mapping field names to text. Produce exactly these fields: {{.FieldList}}. Do not include any text outside the JSON object. Field values are plain text or light markdown; "keywords" is a comma-separated list; "faq" alternates question and answer lines.`))

// generationUserTmpl is the user prompt shared by both modes. In quality
// mode the competitor section additionally carries the analysis block and
// the locale content strategy.
var generationUserTmpl = template.Must(template.New("user").Parse(`Write SEO content for the game "{{.GameTitle}}".

Main keyword: {{.MainKeyword}}
{{- if .SubKeywords}}
Secondary keywords: {{.SubKeywords}}
{{- end}}
{{- if .Category}}
Category: {{.Category}}
{{- end}}

Competitor content for reference (do not copy, improve upon it):
{{.CompetitorSection}}`))

// analysisPromptTmpl drives the quality-mode analysis call.
var analysisPromptTmpl = template.Must(template.New("analysis").Parse(`Analyze the following competitor pages for the game "{{.GameTitle}}" (main keyword: "{{.MainKeyword}}").

Respond with a JSON object with these keys:
- "summary": what the competitor pages cover, in 2-3 sentences
- "insights": an array of angles worth using in new content
- "gaps": an array of topics the competitors miss
- "tone": the register the competitor content uses

Do not include any text outside the JSON object.

Competitor pages:
{{.CompetitorSection}}`))

// localeStrategies holds per-language content guidance spliced into
// quality-mode prompts. Unknown locales fall back to the generic entry.
var localeStrategies = map[string]string{
	"en": "Use direct, benefit-led phrasing. Front-load the main keyword in titles.",
	"ja": "Prefer polite form (です/ます). Keep sentences short; avoid direct translation of English idioms.",
	"zh": "Use concise declarative sentences. Include the main keyword naturally in the first paragraph.",
	"es": "Use informal 'tú' register common in gaming content. Keep titles under 60 characters.",
	"de": "Compound nouns are fine in body text but keep titles simple. Formal 'Sie' is unnecessary for gaming.",
	"":   "Match the phrasing conventions native speakers use for casual gaming content in this language.",
}

// promptVars feeds the generation templates.
type promptVars struct {
	GameTitle         string
	Locale            string
	MainKeyword       string
	SubKeywords       string
	Category          string
	FieldList         string
	CompetitorSection string
}

// renderGenerationPrompts produces the system and user prompts. extra, when
// non-empty, is appended to the competitor section (quality mode's analysis
// block).
func renderGenerationPrompts(in Input, extra string) (system, user string, err error) {
	section := competitorSection(in)
	if extra != "" {
		section += "\n\n" + extra
	}

	vars := promptVars{
		GameTitle:         in.Request.GameTitle,
		Locale:            in.Request.Locale,
		MainKeyword:       in.Request.MainKeyword,
		SubKeywords:       strings.Join(in.Request.SubKeywords, ", "),
		Category:          in.Request.Category,
		FieldList:         strings.Join(requestedFields(in.Request), ", "),
		CompetitorSection: section,
	}

	system, err = render(generationSystemTmpl, vars)
	if err != nil {
		return "", "", err
	}
	user, err = render(generationUserTmpl, vars)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

// renderAnalysisPrompt produces the quality-mode analysis prompt.
func renderAnalysisPrompt(in Input) (string, error) {
	return render(analysisPromptTmpl, promptVars{
		GameTitle:         in.Request.GameTitle,
		MainKeyword:       in.Request.MainKeyword,
		CompetitorSection: competitorSection(in),
	})
}

// analysisBlock formats the analysis result plus the locale strategy for
// splicing into the generation prompt.
func analysisBlock(a *Analysis, locale string) string {
	strategy, ok := localeStrategies[localeKey(locale)]
	if !ok {
		strategy = localeStrategies[""]
	}

	var b strings.Builder
	b.WriteString("Competitor analysis:\n")
	fmt.Fprintf(&b, "Summary: %s\n", a.Summary)
	if len(a.Insights) > 0 {
		fmt.Fprintf(&b, "Angles to use: %s\n", strings.Join(a.Insights, "; "))
	}
	if len(a.Gaps) > 0 {
		fmt.Fprintf(&b, "Gaps to fill: %s\n", strings.Join(a.Gaps, "; "))
	}
	if a.Tone != "" {
		fmt.Fprintf(&b, "Competitor tone: %s\n", a.Tone)
	}
	fmt.Fprintf(&b, "\nContent strategy for this locale: %s", strategy)
	return b.String()
}

// localeKey reduces a locale code to its language part ("zh-CN" → "zh").
func localeKey(locale string) string {
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		return strings.ToLower(locale[:i])
	}
	return strings.ToLower(locale)
}

// competitorSection concatenates the extraction outcomes, marking degraded
// entries, plus any caller-supplied auxiliary text.
func competitorSection(in Input) string {
	if len(in.Outcomes) == 0 && in.Request.AuxiliaryText == "" {
		return "(no competitor content available; rely on the keywords and your own knowledge)"
	}

	var b strings.Builder
	for i, out := range in.Outcomes {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Source %d: %s (%s)", i+1, out.Title, out.URL)
		if out.Error != "" {
			b.WriteString(" [search snippet only]")
		}
		b.WriteString(" ---\n")
		b.WriteString(out.Content)
	}
	if in.Request.AuxiliaryText != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("--- Additional material supplied by the editor ---\n")
		b.WriteString(in.Request.AuxiliaryText)
	}
	return b.String()
}

// render executes tmpl with vars.
func render(tmpl *template.Template, vars promptVars) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}
