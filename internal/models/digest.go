// Package models defines data structures for the digest pipeline
package models

import (
	"strings"
	"time"
)

// Unknown is the sentinel stored in categorical properties that could not be extracted
const Unknown = "unknown"

// BlockKind identifies the variant of a ContentBlock
type BlockKind string

const (
	BlockHeading      BlockKind = "heading"
	BlockDivider      BlockKind = "divider"
	BlockBulletItem   BlockKind = "bulleted_list_item"
	BlockNumberedItem BlockKind = "numbered_list_item"
	BlockParagraph    BlockKind = "paragraph"
)

// SpanKind identifies the variant of a Span
type SpanKind string

const (
	SpanText SpanKind = "text"
	SpanLink SpanKind = "link"
)

// Span is one contiguous run of plain text or a hyperlink within a single line
type Span struct {
	Kind    SpanKind `json:"kind"`
	Content string   `json:"content"`
	URL     string   `json:"url,omitempty"`
}

// TextSpan builds a plain text span
func TextSpan(content string) Span {
	return Span{Kind: SpanText, Content: content}
}

// LinkSpan builds a hyperlink span
func LinkSpan(content, url string) Span {
	return Span{Kind: SpanLink, Content: content, URL: url}
}

// IsLink reports whether the span carries a URL
func (s Span) IsLink() bool {
	return s.Kind == SpanLink
}

// ContentBlock is one structural unit of rendered content.
// Level is set for headings only (1..3); Spans is empty for dividers.
// Line is the 1-based source line the block was produced from.
type ContentBlock struct {
	Kind  BlockKind `json:"kind"`
	Level int       `json:"level,omitempty"`
	Spans []Span    `json:"spans,omitempty"`
	Line  int       `json:"line"`
}

// PlainText concatenates the content of every span in order
func (b ContentBlock) PlainText() string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Content)
	}
	return sb.String()
}

// DigestProperties is the flat property record derived from a digest.
// Numeric fields use 0 for "not determined"; categorical fields use Unknown.
type DigestProperties struct {
	Title               string    `json:"title"`
	Date                time.Time `json:"date"`
	MarketMode          string    `json:"market_mode"`
	GlobalSentiment     string    `json:"global_sentiment"`
	VIX                 float64   `json:"vix"`
	SP500               float64   `json:"sp500"`
	KOSPI               float64   `json:"kospi"`
	USDKRW              float64   `json:"usdkrw"`
	Bond10Y             float64   `json:"bond10y"`
	Confidence          string    `json:"confidence"`
	MarketAtmosphere    string    `json:"market_atmosphere"`
	Keywords            []string  `json:"keywords"`
	PriorityInstruments []string  `json:"priority_instruments"`
	Summary             string    `json:"summary"`
}

// NewDigestProperties returns a record with every field at its default
func NewDigestProperties(date time.Time) DigestProperties {
	return DigestProperties{
		Date:                date,
		MarketMode:          Unknown,
		GlobalSentiment:     Unknown,
		Confidence:          Unknown,
		MarketAtmosphere:    Unknown,
		Keywords:            []string{},
		PriorityInstruments: []string{},
	}
}

// PriorityInstrumentsText joins the priority instruments for text-valued consumers
func (p DigestProperties) PriorityInstrumentsText() string {
	return strings.Join(p.PriorityInstruments, ", ")
}

// MissingMarketFields lists the market fields still at their default value
func (p DigestProperties) MissingMarketFields() []MarketField {
	var missing []MarketField
	for _, f := range MarketFields {
		if p.MarketValue(f) == 0 {
			missing = append(missing, f)
		}
	}
	return missing
}

// MarketValue returns the numeric property for a market field
func (p DigestProperties) MarketValue(f MarketField) float64 {
	switch f {
	case FieldVIX:
		return p.VIX
	case FieldSP500:
		return p.SP500
	case FieldKOSPI:
		return p.KOSPI
	case FieldUSDKRW:
		return p.USDKRW
	case FieldBond10Y:
		return p.Bond10Y
	}
	return 0
}

// SetMarketValue stores a numeric property for a market field
func (p *DigestProperties) SetMarketValue(f MarketField, v float64) {
	switch f {
	case FieldVIX:
		p.VIX = v
	case FieldSP500:
		p.SP500 = v
	case FieldKOSPI:
		p.KOSPI = v
	case FieldUSDKRW:
		p.USDKRW = v
	case FieldBond10Y:
		p.Bond10Y = v
	}
}

// Digest is the structured result of processing one digest text
type Digest struct {
	Markdown   string           `json:"markdown"`
	Blocks     []ContentBlock   `json:"blocks"`
	Properties DigestProperties `json:"properties"`
}
