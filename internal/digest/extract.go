package digest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/bobmcallan/vire-digest/internal/common"
	"github.com/bobmcallan/vire-digest/internal/models"
)

// numberExpr accepts plain digits or well-formed thousands groups. The number
// must not run on into another digit or a comma-joined digit, so "2,580,3"
// is rejected rather than read as 25803.
const numberExpr = `((?:[0-9]{1,3}(?:,[0-9]{3})+|[0-9]+)(?:\.[0-9]+)?)(?:$|[^0-9,]|,[^0-9]|,$)`

var instrumentPattern = regexp.MustCompile(`[\p{L}\p{N}_&]+ ?\([A-Za-z0-9.]+\)`)

type compiledRule struct {
	rule     NumericRule
	patterns []*regexp.Regexp
}

// Extractor pulls DigestProperties out of digest markdown according to a Template
type Extractor struct {
	tmpl    Template
	numeric []compiledRule
	logger  arbor.ILogger
	now     func() time.Time
}

// ExtractorOption configures an Extractor
type ExtractorOption func(*Extractor)

// WithClock sets the clock used to date the digest
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) {
		e.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger arbor.ILogger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor compiles the template's numeric rules into an Extractor
func NewExtractor(tmpl Template, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		tmpl:   tmpl.clone(),
		logger: common.NewSilentLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, rule := range e.tmpl.NumericRules {
		cr := compiledRule{rule: rule}
		for _, label := range rule.Labels {
			sep := `[\s*:：=]*`
			if rule.Loose {
				sep = `[^0-9\n]*`
			}
			cr.patterns = append(cr.patterns, regexp.MustCompile(regexp.QuoteMeta(label)+sep+numberExpr))
		}
		e.numeric = append(e.numeric, cr)
	}
	return e
}

// Template returns a copy of the template the extractor was built with
func (e *Extractor) Template() Template {
	return e.tmpl.clone()
}

// Extract derives the property record from digest text. Every strategy runs
// independently; anything not found keeps its default.
func (e *Extractor) Extract(text string) models.DigestProperties {
	loc := e.tmpl.Location
	if loc == nil {
		loc = time.UTC
	}
	date := e.now().In(loc)
	props := models.NewDigestProperties(time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc))

	props.Summary = e.summary(text)

	for _, rule := range e.tmpl.TableRules {
		raw, ok := tableValue(text, rule.Section, rule.Row, e.tmpl.TopSectionMarker)
		if !ok {
			continue
		}
		if value := cleanCategory(raw); value != "" {
			setCategory(&props, rule.Property, value)
		}
	}

	if raw, ok := tableValue(text, e.tmpl.ConfidenceSection, e.tmpl.ConfidenceRow, e.tmpl.TopSectionMarker); ok {
		props.Confidence = e.confidenceTier(raw)
	}

	for _, cr := range e.numeric {
		if v, ok := matchNumeric(text, cr); ok {
			props.SetMarketValue(cr.rule.Field, v)
		}
	}

	props.PriorityInstruments = e.priorityInstruments(text)
	props.Keywords = e.keywords(text)
	props.Title = e.title(props.Date, props.Summary)

	e.logger.Debug().
		Str("market_mode", props.MarketMode).
		Str("confidence", props.Confidence).
		Int("keywords", len(props.Keywords)).
		Int("missing_market_fields", len(props.MissingMarketFields())).
		Msg("Digest properties extracted")

	return props
}

func (e *Extractor) summary(text string) string {
	if e.tmpl.SummaryAnchor == "" {
		return ""
	}
	idx := strings.Index(text, e.tmpl.SummaryAnchor)
	if idx < 0 {
		return ""
	}
	rest := lineAt(text[idx+len(e.tmpl.SummaryAnchor):])
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(rest), "*:："))
}

// confidenceTier maps the count of filled glyphs to a fixed tier. Zero glyphs
// falls back to the raw cell text, or Unknown when the cell is empty.
func (e *Extractor) confidenceTier(raw string) string {
	count := 0
	if e.tmpl.StarGlyph != "" {
		count = strings.Count(raw, e.tmpl.StarGlyph)
	}
	if count > 5 {
		count = 5
	}
	if count > 0 {
		if tier, ok := e.tmpl.ConfidenceTiers[count]; ok {
			return tier
		}
	}
	if raw = strings.TrimSpace(raw); raw != "" {
		return raw
	}
	return models.Unknown
}

func (e *Extractor) priorityInstruments(text string) []string {
	out := []string{}
	if e.tmpl.PriorityMarker == "" {
		return out
	}
	idx := strings.Index(text, e.tmpl.PriorityMarker)
	if idx < 0 {
		return out
	}
	line := lineAt(text[idx+len(e.tmpl.PriorityMarker):])
	for _, m := range instrumentPattern.FindAllString(line, e.tmpl.MaxPriority) {
		out = append(out, strings.TrimSpace(m))
	}
	return out
}

func (e *Extractor) keywords(text string) []string {
	window := truncateRunes(text, e.tmpl.KeywordWindow)
	out := []string{}
	for _, kw := range e.tmpl.Keywords {
		if len(out) >= e.tmpl.MaxKeywords {
			break
		}
		if kw != "" && strings.Contains(window, kw) {
			out = append(out, kw)
		}
	}
	return out
}

func (e *Extractor) title(date time.Time, summary string) string {
	suffix := summary
	if suffix == "" {
		suffix = e.tmpl.DefaultTitleSuffix
	}
	return truncateRunes(date.Format("2006-01-02")+" "+suffix, e.tmpl.TitleMaxLen)
}

// matchNumeric returns the first in-range value across the rule's labels,
// scaled and rounded for storage.
func matchNumeric(text string, cr compiledRule) (float64, bool) {
	for _, re := range cr.patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
			if err != nil || !cr.rule.Range.Contains(v) {
				continue
			}
			scale := cr.rule.Scale
			if scale == 0 {
				scale = 1
			}
			return Round(v*scale, cr.rule.Precision), true
		}
	}
	return 0, false
}

// tableValue finds the first section containing marker, bounded by the next
// top-level section, and returns the second cell of the row labelled row.
func tableValue(text, marker, row, topMarker string) (string, bool) {
	if marker == "" || row == "" {
		return "", false
	}
	idx := strings.Index(text, marker)
	if idx < 0 {
		return "", false
	}
	section := text[idx+len(marker):]
	if topMarker != "" {
		if end := strings.Index(section, topMarker); end >= 0 {
			section = section[:end]
		}
	}

	for _, line := range strings.Split(section, "\n") {
		t := strings.TrimSpace(line)
		if !strings.HasPrefix(t, "|") {
			continue
		}
		cells := strings.Split(strings.Trim(t, "|"), "|")
		if len(cells) < 2 {
			continue
		}
		if unbold(cells[0]) == row {
			return unbold(cells[1]), true
		}
	}
	return "", false
}

func setCategory(p *models.DigestProperties, property, value string) {
	switch property {
	case PropMarketMode:
		p.MarketMode = value
	case PropGlobalSentiment:
		p.GlobalSentiment = value
	case PropMarketAtmosphere:
		p.MarketAtmosphere = value
	}
}

func unbold(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}

// lineAt returns s up to (not including) the first newline
func lineAt(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "\r")
}
