package digest

import (
	"regexp"

	"github.com/bobmcallan/vire-digest/internal/models"
)

// anchorPattern matches <a href="URL">TEXT</a>; TEXT is non-greedy and anchors do not nest.
var anchorPattern = regexp.MustCompile(`(?is)<a\s+href="([^"]*)"[^>]*>(.*?)</a>`)

// ResolveSpans splits one line into text and link spans, preserving order.
// A line without anchors yields exactly one text span holding the whole line,
// even when the line is empty.
func ResolveSpans(line string) []models.Span {
	matches := anchorPattern.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 {
		return []models.Span{models.TextSpan(line)}
	}

	spans := make([]models.Span, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			spans = append(spans, models.TextSpan(line[last:m[0]]))
		}
		spans = append(spans, models.LinkSpan(line[m[4]:m[5]], line[m[2]:m[3]]))
		last = m[1]
	}
	if last < len(line) {
		spans = append(spans, models.TextSpan(line[last:]))
	}
	return spans
}
