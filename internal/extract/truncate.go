// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// mediaSectionMarkers identify the start of a trailing images/media block in
// reader output. Cutting right before one of these drops the least useful
// part of the page first.
var mediaSectionMarkers = []string{
	"\nImages:",
	"\n## Images",
	"\n### Images",
	"\nMedia:",
	"\n## Media",
}

// truncate cuts content down to at most budget characters of body text and
// appends a notice stating the original length. Boundary preference:
//  1. immediately before a trailing media/images section within budget,
//  2. the last paragraph break at or before 80% of the budget,
//  3. a hard cut at the budget.
func truncate(content string, budget int) string {
	if len(content) <= budget {
		return content
	}

	cut := -1
	for _, marker := range mediaSectionMarkers {
		if idx := strings.LastIndex(content, marker); idx > 0 && idx <= budget {
			if cut == -1 || idx > cut {
				cut = idx
			}
		}
	}

	if cut == -1 {
		soft := budget * 80 / 100
		if idx := strings.LastIndex(content[:soft], "\n\n"); idx > 0 {
			cut = idx
		}
	}
	if cut == -1 {
		// Hard cut. Back off to a rune boundary so a multi-byte character is
		// never split.
		cut = budget
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
	}

	return strings.TrimSpace(content[:cut]) +
		fmt.Sprintf("\n\n[content truncated, original length %d characters]", len(content))
}
