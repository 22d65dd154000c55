// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateUnderBudgetUnchanged(t *testing.T) {
	content := "short content"
	if got := truncate(content, 5000); got != content {
		t.Errorf("content under budget should be unchanged, got %q", got)
	}
}

func TestTruncateCutsBeforeMediaSection(t *testing.T) {
	body := strings.Repeat("paragraph text ", 100) // ~1500 chars
	content := body + "\nImages:\n![a](x.png)\n![b](y.png)" + strings.Repeat("z", 4000)

	got := truncate(content, 5000)
	if strings.Contains(got, "Images:") {
		t.Error("media section should have been cut")
	}
	if !strings.Contains(got, fmt.Sprintf("original length %d characters", len(content))) {
		t.Errorf("truncation notice missing or wrong: %q", got[len(got)-80:])
	}
}

func TestTruncateParagraphBoundary(t *testing.T) {
	para := strings.Repeat("word ", 50) // 250 chars
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString(para)
		b.WriteString("\n\n")
	}
	content := b.String()

	budget := 1000
	got := truncate(content, budget)
	notice := fmt.Sprintf("[content truncated, original length %d characters]", len(content))
	if !strings.HasSuffix(got, notice) {
		t.Fatalf("missing notice, tail = %q", got[len(got)-80:])
	}

	body := strings.TrimSuffix(got, notice)
	if len(body) > budget {
		t.Errorf("body length %d exceeds budget %d", len(body), budget)
	}
	// The cut lands on a paragraph boundary, so the kept text ends mid-word
	// never.
	if strings.HasSuffix(strings.TrimSpace(body), "wor") {
		t.Error("cut split a word")
	}
}

func TestTruncateHardCutKeepsRuneBoundary(t *testing.T) {
	// Three-byte runes with no paragraph breaks or media markers, and a
	// budget that lands mid-rune.
	content := strings.Repeat("日本語", 500) // 4500 bytes
	budget := 1000

	got := truncate(content, budget)
	if !utf8.ValidString(got) {
		t.Fatal("truncated content is not valid UTF-8")
	}
	notice := fmt.Sprintf("[content truncated, original length %d characters]", len(content))
	if !strings.HasSuffix(got, notice) {
		t.Errorf("missing notice, tail = %q", got[len(got)-40:])
	}
	body := strings.TrimSpace(strings.TrimSuffix(got, notice))
	if len(body) > budget {
		t.Errorf("body length %d exceeds budget %d", len(body), budget)
	}
}

func TestTruncateHardCutWithoutBoundaries(t *testing.T) {
	content := strings.Repeat("x", 8000)
	got := truncate(content, 5000)
	if !strings.Contains(got, "original length 8000 characters") {
		t.Errorf("notice missing: %q", got[len(got)-80:])
	}
	if len(got) > 5000+80 {
		t.Errorf("hard cut too long: %d", len(got))
	}
}
