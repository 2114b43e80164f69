// Package digest turns generated digest markdown into content blocks and a
// flat property record. Nothing in this package returns an error: input that
// does not match the template degrades to defaults.
package digest

import (
	"math"
	"strings"
	"time"

	"github.com/bobmcallan/vire-digest/internal/common"
	"github.com/bobmcallan/vire-digest/internal/models"
)

// Categorical property names addressed by TableRule
const (
	PropMarketMode       = "market_mode"
	PropGlobalSentiment  = "global_sentiment"
	PropMarketAtmosphere = "market_atmosphere"
)

// Range is a plausibility gate for a numeric field. A zero Max is unbounded.
type Range struct {
	Min          float64
	Max          float64
	MinExclusive bool
}

// Contains reports whether v passes the gate
func (r Range) Contains(v float64) bool {
	if r.MinExclusive {
		if v <= r.Min {
			return false
		}
	} else if v < r.Min {
		return false
	}
	return r.Max == 0 || v <= r.Max
}

// NumericRule extracts one market field from a labelled number.
// Labels are tried in order; the first in-range match wins.
type NumericRule struct {
	Field  models.MarketField
	Labels []string
	Range  Range
	// Scale is applied after the gate (0.01 turns a percent into a fraction).
	Scale float64
	// Precision rounds the scaled value; negative leaves it untouched.
	Precision int
	// Loose accepts the first number anywhere after the label on the same line.
	// Otherwise only whitespace, bold markup, ':' or '=' may separate them.
	Loose bool
}

// TableRule reads a categorical property from a two-column table row in a section
type TableRule struct {
	Property string
	Section  string
	Row      string
}

// Template is the static description of the digest layout the extractor reads.
// It is treated as immutable once handed to an Extractor.
type Template struct {
	SummaryAnchor      string
	TopSectionMarker   string
	TableRules         []TableRule
	ConfidenceSection  string
	ConfidenceRow      string
	StarGlyph          string
	ConfidenceTiers    map[int]string
	NumericRules       []NumericRule
	PriorityMarker     string
	MaxPriority        int
	Keywords           []string
	KeywordWindow      int
	MaxKeywords        int
	TitleMaxLen        int
	DefaultTitleSuffix string
	Location           *time.Location
}

// DefaultTemplate returns the layout of the pre-market trading digest
func DefaultTemplate() Template {
	return Template{
		SummaryAnchor:    "한줄 요약",
		TopSectionMarker: "\n## ",
		TableRules: []TableRule{
			{Property: PropMarketMode, Section: "시장 레짐", Row: "시장 모드"},
			{Property: PropGlobalSentiment, Section: "시장 레짐", Row: "글로벌 센티먼트"},
			{Property: PropMarketAtmosphere, Section: "시장 레짐", Row: "변동성 수준"},
		},
		ConfidenceSection: "신뢰도 평가",
		ConfidenceRow:     "신뢰도",
		StarGlyph:         "★",
		ConfidenceTiers: map[int]string{
			5: "90%+",
			4: "70-89%",
			3: "50-69%",
			2: "30-49%",
			1: "<30%",
		},
		NumericRules: []NumericRule{
			{Field: models.FieldVIX, Labels: []string{"VIX"}, Range: Range{Min: 0, MinExclusive: true}, Scale: 1, Precision: -1, Loose: true},
			{Field: models.FieldSP500, Labels: []string{"S&P 500", "S&P500", "SPX"}, Range: Range{Min: 1000, MinExclusive: true}, Scale: 1, Precision: -1},
			{Field: models.FieldKOSPI, Labels: []string{"KOSPI", "코스피"}, Range: Range{Min: 1000, MinExclusive: true}, Scale: 1, Precision: -1},
			{Field: models.FieldUSDKRW, Labels: []string{"USD/KRW", "원/달러", "달러/원"}, Range: Range{Min: 1000, Max: 2000}, Scale: 1, Precision: -1},
			{Field: models.FieldBond10Y, Labels: []string{"미국 10년물", "US 10Y", "10년물 금리"}, Range: Range{Min: 0.5, Max: 10}, Scale: 0.01, Precision: 4},
		},
		PriorityMarker: "우선순위 종목",
		MaxPriority:    3,
		Keywords: []string{
			"금리", "연준", "인플레이션", "물가", "환율", "달러", "채권", "국채",
			"나스닥", "반도체", "AI", "경기침체", "고용", "관세", "유가", "실적",
		},
		KeywordWindow:      2000,
		MaxKeywords:        6,
		TitleMaxLen:        100,
		DefaultTitleSuffix: "Daily Trading Digest",
		Location:           common.FixedZone(9),
	}
}

// WithConfig returns a copy of the template with configured overrides applied
func (t Template) WithConfig(cfg common.TemplateConfig, loc *time.Location) Template {
	out := t.clone()
	if len(cfg.Keywords) > 0 {
		out.Keywords = append([]string(nil), cfg.Keywords...)
	}
	if cfg.MaxKeywords > 0 {
		out.MaxKeywords = cfg.MaxKeywords
	}
	if cfg.TitleMaxLen > 0 {
		out.TitleMaxLen = cfg.TitleMaxLen
	}
	for i, rule := range out.NumericRules {
		if r, ok := cfg.Ranges[string(rule.Field)]; ok {
			exclusive := rule.Range.MinExclusive
			if r.MinExclusive != nil {
				exclusive = *r.MinExclusive
			}
			out.NumericRules[i].Range = Range{Min: r.Min, Max: r.Max, MinExclusive: exclusive}
		}
	}
	if loc != nil {
		out.Location = loc
	}
	return out
}

func (t Template) clone() Template {
	out := t
	out.TableRules = append([]TableRule(nil), t.TableRules...)
	out.Keywords = append([]string(nil), t.Keywords...)
	out.NumericRules = make([]NumericRule, len(t.NumericRules))
	for i, r := range t.NumericRules {
		r.Labels = append([]string(nil), r.Labels...)
		out.NumericRules[i] = r
	}
	out.ConfidenceTiers = make(map[int]string, len(t.ConfidenceTiers))
	for k, v := range t.ConfidenceTiers {
		out.ConfidenceTiers[k] = v
	}
	return out
}

// Round rounds v to the given number of decimals; negative precision is a no-op
func Round(v float64, precision int) float64 {
	if precision < 0 {
		return v
	}
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}

// truncateRunes cuts s to at most n characters without splitting a rune
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// cleanCategory keeps only the leading category token of a table value
func cleanCategory(raw string) string {
	if i := strings.IndexAny(raw, "(—/"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}
