// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// directFetch retrieves pageURL itself and extracts readable text from the
// HTML. It is the extraction path when no reader provider is configured.
func (e *Extractor) directFetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", e.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body)
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	text := renderDocument(doc)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("page contains no readable text")
	}
	return text, nil
}

// renderDocument flattens a parsed page into heading-prefixed text blocks.
// Script, style and navigation noise is dropped.
func renderDocument(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, footer, iframe").Remove()

	var b strings.Builder

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}

	doc.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1", "h2", "h3":
			fmt.Fprintf(&b, "## %s\n\n", text)
		case "li":
			fmt.Fprintf(&b, "- %s\n", text)
		default:
			fmt.Fprintf(&b, "%s\n\n", text)
		}
	})

	return strings.TrimSpace(b.String())
}
