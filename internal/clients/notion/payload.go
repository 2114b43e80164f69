package notion

import (
	"strings"
	"unicode/utf8"

	"github.com/bobmcallan/vire-digest/internal/models"
)

// Block is one child block object in a page request
type Block map[string]any

// RichText is one rich text object
type RichText struct {
	Type string   `json:"type"`
	Text TextBody `json:"text"`
}

// TextBody holds the content of a text rich text object
type TextBody struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// Link is a rich text hyperlink
type Link struct {
	URL string `json:"url"`
}

// BuildBlocks converts content blocks to Notion block objects, preserving order
func BuildBlocks(blocks []models.ContentBlock) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Kind == models.BlockDivider {
			out = append(out, Block{"object": "block", "type": "divider", "divider": map[string]any{}})
			continue
		}

		blockType := string(b.Kind)
		if b.Kind == models.BlockHeading {
			switch b.Level {
			case 1:
				blockType = "heading_1"
			case 2:
				blockType = "heading_2"
			default:
				blockType = "heading_3"
			}
		}

		out = append(out, Block{
			"object":  "block",
			"type":    blockType,
			blockType: map[string]any{"rich_text": BuildRichText(b.Spans)},
		})
	}
	return out
}

// BuildRichText converts spans to rich text objects, capping each at MaxRichText characters
func BuildRichText(spans []models.Span) []RichText {
	out := make([]RichText, 0, len(spans))
	for _, s := range spans {
		rt := RichText{Type: "text", Text: TextBody{Content: capRunes(s.Content, MaxRichText)}}
		if s.IsLink() && s.URL != "" {
			rt.Text.Link = &Link{URL: s.URL}
		}
		out = append(out, rt)
	}
	return out
}

// BuildProperties maps digest properties to database property values.
// Categories become selects, market fields numbers, keywords a multi_select,
// and free text rich_text. Undetermined numbers are sent as null.
func BuildProperties(p models.DigestProperties) map[string]any {
	props := map[string]any{
		PropTitle:               map[string]any{"title": textValue(p.Title)},
		PropMarketMode:          selectValue(p.MarketMode),
		PropGlobalSentiment:     selectValue(p.GlobalSentiment),
		PropMarketAtmosphere:    selectValue(p.MarketAtmosphere),
		PropConfidence:          selectValue(p.Confidence),
		PropVIX:                 numberValue(p.VIX),
		PropSP500:               numberValue(p.SP500),
		PropKOSPI:               numberValue(p.KOSPI),
		PropUSDKRW:              numberValue(p.USDKRW),
		PropBond10Y:             numberValue(p.Bond10Y),
		PropKeywords:            multiSelectValue(p.Keywords),
		PropPriorityInstruments: map[string]any{"rich_text": textValue(p.PriorityInstrumentsText())},
		PropSummary:             map[string]any{"rich_text": textValue(p.Summary)},
	}
	if !p.Date.IsZero() {
		props[PropDate] = map[string]any{"date": map[string]string{"start": p.Date.Format("2006-01-02")}}
	}
	return props
}

func textValue(s string) []RichText {
	if s == "" {
		return []RichText{}
	}
	return []RichText{{Type: "text", Text: TextBody{Content: capRunes(s, MaxRichText)}}}
}

func selectValue(s string) map[string]any {
	return map[string]any{"select": map[string]string{"name": optionName(s)}}
}

func multiSelectValue(values []string) map[string]any {
	opts := make([]map[string]string, 0, len(values))
	for _, v := range values {
		opts = append(opts, map[string]string{"name": optionName(v)})
	}
	return map[string]any{"multi_select": opts}
}

func numberValue(v float64) map[string]any {
	if v == 0 {
		return map[string]any{"number": nil}
	}
	return map[string]any{"number": v}
}

// optionName makes a value acceptable as a select option: no commas, bounded length
func optionName(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", " "))
	if s == "" {
		s = models.Unknown
	}
	return capRunes(s, maxOptionName)
}

func capRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
