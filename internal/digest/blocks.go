package digest

import (
	"regexp"
	"strings"

	"github.com/bobmcallan/vire-digest/internal/models"
)

// MaxSpanLength caps the text of a single block before span resolution,
// matching the per-field limit of the document store.
const MaxSpanLength = 2000

var (
	tagPattern      = regexp.MustCompile(`</?(?i:(` + htmlTagNames + `))(?:\s+[A-Za-z_:][-A-Za-z0-9_:.]*\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'=<>]+))*\s*/?>`)
	mdLinkPattern   = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\s)]+)\)`)
	numberedPattern = regexp.MustCompile(`^\d+[.)] `)
)

// htmlTagNames are the tags recognised as markup. Anything else in angle
// brackets, like "<Fed 발언>", is text.
const htmlTagNames = `a|abbr|article|b|blockquote|br|center|code|del|details|div|em|font|footer|h[1-6]|header|hr|i|img|ins|li|mark|ol|p|pre|s|section|small|span|strong|sub|summary|sup|table|tbody|td|tfoot|th|thead|tr|u|ul`

var dividerMarkers = map[string]bool{"---": true, "***": true, "___": true}

// ParseBlocks converts digest markdown into an ordered sequence of content blocks.
// Blank lines and table separator rows produce nothing; lines that match no
// construct become paragraphs. Blocks never carry empty text.
func ParseBlocks(text string) []models.ContentBlock {
	blocks := []models.ContentBlock{}
	for i, raw := range strings.Split(text, "\n") {
		if block, ok := parseLine(strings.TrimRight(raw, "\r"), i+1); ok {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func parseLine(raw string, lineNo int) (models.ContentBlock, bool) {
	stripped := stripTags(raw)
	trimmed := strings.TrimSpace(stripped)
	if trimmed == "" {
		return models.ContentBlock{}, false
	}
	// Prefix markers keep their trailing space, so "## " alone is an empty heading.
	lead := strings.TrimLeft(stripped, " \t")

	var (
		kind  models.BlockKind
		level int
		body  string
	)
	switch {
	case strings.HasPrefix(lead, "### "):
		kind, level, body = models.BlockHeading, 3, lead[4:]
	case strings.HasPrefix(lead, "## "):
		kind, level, body = models.BlockHeading, 2, lead[3:]
	case strings.HasPrefix(lead, "# "):
		kind, level, body = models.BlockHeading, 1, lead[2:]
	case dividerMarkers[trimmed]:
		return models.ContentBlock{Kind: models.BlockDivider, Line: lineNo}, true
	case isTableSeparator(trimmed):
		return models.ContentBlock{}, false
	case strings.HasPrefix(lead, "- "), strings.HasPrefix(lead, "* "):
		kind, body = models.BlockBulletItem, lead[2:]
	case numberedPattern.MatchString(lead):
		loc := numberedPattern.FindStringIndex(lead)
		kind, body = models.BlockNumberedItem, lead[loc[1]:]
	default:
		kind, body = models.BlockParagraph, trimmed
	}

	body = cleanInline(body)
	if cut := truncateRunes(body, MaxSpanLength); len(cut) < len(body) {
		body = closePartialAnchor(cut)
	}
	spans := ResolveSpans(body)

	block := models.ContentBlock{Kind: kind, Level: level, Spans: spans, Line: lineNo}
	if strings.TrimSpace(block.PlainText()) == "" {
		return models.ContentBlock{}, false
	}
	return block, true
}

// stripTags removes every markup tag except anchors, keeping the wrapped content
func stripTags(line string) string {
	return tagPattern.ReplaceAllStringFunc(line, func(tag string) string {
		m := tagPattern.FindStringSubmatch(tag)
		if len(m) > 1 && strings.EqualFold(m[1], "a") {
			return tag
		}
		return ""
	})
}

// cleanInline rewrites markdown links as anchors and drops bold markers
func cleanInline(s string) string {
	s = mdLinkPattern.ReplaceAllString(s, `<a href="$2">$1</a>`)
	s = strings.ReplaceAll(s, "**", "")
	return strings.TrimSpace(s)
}

// closePartialAnchor repairs an anchor cut open by truncation. A cut inside
// the opening tag drops the fragment; a cut inside the link text closes the
// anchor so the visible text stays a link.
func closePartialAnchor(s string) string {
	lower := strings.ToLower(s)
	open := strings.LastIndex(lower, "<a ")
	if open >= 0 && !strings.Contains(lower[open:], "</a>") {
		gt := strings.IndexByte(s[open:], '>')
		if gt < 0 {
			return s[:open]
		}
		for _, partial := range []string{"</a", "</", "<"} {
			if strings.HasSuffix(lower, partial) {
				s = s[:len(s)-len(partial)]
				break
			}
		}
		if len(s) <= open+gt+1 {
			return s[:open]
		}
		return s + "</a>"
	}

	for _, partial := range []string{"<a", "<"} {
		if strings.HasSuffix(lower, partial) {
			return s[:len(s)-len(partial)]
		}
	}
	return s
}

func isTableSeparator(trimmed string) bool {
	return strings.HasPrefix(trimmed, "|") && strings.Count(trimmed, "-") > 3
}
