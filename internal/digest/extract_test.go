package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-digest/internal/common"
	"github.com/bobmcallan/vire-digest/internal/models"
)

const sampleDigest = `# 오늘의 핵심 뉴스 & 수혜주

**한줄 요약:** 연준 동결 기대 속 반도체 강세, 환율 안정

## 0. 시장 레짐
| 항목 | 판단 |
|------|------|
| 시장 모드 | 리스크온 (위험자산 선호) |
| 글로벌 센티먼트 | 낙관 — 기술주 주도 |
| 변동성 수준 | 보통/안정 |

## 1. 주요 지표
- VIX: 15.82
- S&P 500: 5,812.4 points
- KOSPI 200: 350.1
- KOSPI: 2,650.3
- USD/KRW: 1,385.5
- 미국 10년물: 4.25%

## 2. 핵심 뉴스
1. <a href="https://n.test/fed">연준 금리 동결 시사</a> — 나스닥 상승
2. [엔비디아 실적](https://n.test/nvda) 호조로 반도체 강세

**우선순위 종목:** 삼성전자(005930), SK하이닉스(000660), NVIDIA(NVDA), 테슬라(TSLA)

---

## 7. 신뢰도 평가
| 항목 | 평가 |
|------|------|
| 신뢰도 | ★★★★☆ |
`

// fixedClock returns 07:30 on 2026-10-15 in UTC+9
func fixedClock() time.Time {
	return time.Date(2026, 10, 14, 22, 30, 0, 0, time.UTC)
}

func newTestExtractor() *Extractor {
	return NewExtractor(DefaultTemplate(), WithClock(fixedClock))
}

func TestExtract_FullDigest(t *testing.T) {
	props := newTestExtractor().Extract(sampleDigest)

	assert.Equal(t, "연준 동결 기대 속 반도체 강세, 환율 안정", props.Summary)
	assert.Equal(t, "2026-10-15 연준 동결 기대 속 반도체 강세, 환율 안정", props.Title)
	assert.Equal(t, "2026-10-15", props.Date.Format("2006-01-02"))

	assert.Equal(t, "리스크온", props.MarketMode)
	assert.Equal(t, "낙관", props.GlobalSentiment)
	assert.Equal(t, "보통", props.MarketAtmosphere)
	assert.Equal(t, "70-89%", props.Confidence)

	assert.Equal(t, 15.82, props.VIX)
	assert.Equal(t, 5812.4, props.SP500)
	assert.Equal(t, 2650.3, props.KOSPI, "KOSPI 200 must be rejected by the index gate")
	assert.Equal(t, 1385.5, props.USDKRW)
	assert.InDelta(t, 0.0425, props.Bond10Y, 1e-9)

	assert.Equal(t, []string{"삼성전자(005930)", "SK하이닉스(000660)", "NVIDIA(NVDA)"}, props.PriorityInstruments)
	assert.Equal(t, "삼성전자(005930), SK하이닉스(000660), NVIDIA(NVDA)", props.PriorityInstrumentsText())
	assert.Equal(t, []string{"금리", "연준", "환율", "나스닥", "반도체", "실적"}, props.Keywords)
	assert.Empty(t, props.MissingMarketFields())
}

func TestExtract_RegimeTableScenario(t *testing.T) {
	props := newTestExtractor().Extract("## 0. 시장 레짐\n| 시장 모드 | 리스크오프 (안전자산 선호) |\n")

	assert.Equal(t, "리스크오프", props.MarketMode)
	assert.Equal(t, models.Unknown, props.GlobalSentiment)
}

func TestExtract_IndexGate(t *testing.T) {
	e := newTestExtractor()

	assert.Equal(t, 5812.4, e.Extract("S&P 500: 5812.4 points").SP500)
	assert.Equal(t, 0.0, e.Extract("S&P 500: 812.4").SP500)
	assert.Equal(t, 0.0, e.Extract("S&P 500: 500").SP500)
	assert.Equal(t, 5800.0, e.Extract("S&P 500: 5800").SP500)
	assert.Equal(t, 5790.5, e.Extract("**SPX**: 5790.5").SP500, "alternate label")
}

func TestExtract_FirstInRangeLabelWins(t *testing.T) {
	props := newTestExtractor().Extract("S&P 500: 700\nS&P500: 5700\nSPX: 5900")
	assert.Equal(t, 5700.0, props.SP500)
}

func TestExtract_RangeGates(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name  string
		text  string
		field models.MarketField
		want  float64
	}{
		{"fx in range", "USD/KRW: 1,402", models.FieldUSDKRW, 1402},
		{"fx too high", "USD/KRW: 2400", models.FieldUSDKRW, 0},
		{"fx alternate label", "원/달러: 1390.2", models.FieldUSDKRW, 1390.2},
		{"yield in range", "US 10Y: 4.1%", models.FieldBond10Y, 0.041},
		{"yield too low", "미국 10년물: 0.2%", models.FieldBond10Y, 0},
		{"yield too high", "미국 10년물: 41%", models.FieldBond10Y, 0},
		{"kospi korean label", "코스피: 2,601.77", models.FieldKOSPI, 2601.77},
		{"kospi comma-joined trailing number", "KOSPI 2,580,3일 연속 상승", models.FieldKOSPI, 0},
		{"index with malformed grouping", "S&P 500: 5,8124", models.FieldSP500, 0},
		{"index followed by prose comma", "S&P 500: 5,812.4, 사상 최고", models.FieldSP500, 5812.4},
		{"fx grouped then percent", "USD/KRW: 1,385.5(+0.3%)", models.FieldUSDKRW, 1385.5},
		{"vix loose separator", "VIX(공포지수) 현재 21.3", models.FieldVIX, 21.3},
		{"vix absent", "no volatility here", models.FieldVIX, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props := e.Extract(tt.text)
			assert.InDelta(t, tt.want, props.MarketValue(tt.field), 1e-9)
		})
	}
}

func TestConfidenceTier_Total(t *testing.T) {
	e := newTestExtractor()
	want := map[int]string{5: "90%+", 4: "70-89%", 3: "50-69%", 2: "30-49%", 1: "<30%"}

	for k := 1; k <= 5; k++ {
		cell := strings.Repeat("★", k) + strings.Repeat("☆", 5-k)
		assert.Equal(t, want[k], e.confidenceTier(cell), "k=%d", k)
		assert.Equal(t, e.confidenceTier(cell), e.confidenceTier(cell))
	}

	assert.Equal(t, models.Unknown, e.confidenceTier(""))
	assert.Equal(t, models.Unknown, e.confidenceTier("   "))
	assert.Equal(t, "중간", e.confidenceTier("중간"))
	assert.Equal(t, "90%+", e.confidenceTier("★★★★★★★"), "more than five glyphs clamps to the top tier")
}

func TestExtract_EmptyInputGivesDefaults(t *testing.T) {
	props := newTestExtractor().Extract("")

	assert.Equal(t, models.Unknown, props.MarketMode)
	assert.Equal(t, models.Unknown, props.GlobalSentiment)
	assert.Equal(t, models.Unknown, props.MarketAtmosphere)
	assert.Equal(t, models.Unknown, props.Confidence)
	assert.Zero(t, props.VIX)
	assert.Zero(t, props.SP500)
	assert.Zero(t, props.KOSPI)
	assert.Zero(t, props.USDKRW)
	assert.Zero(t, props.Bond10Y)
	assert.NotNil(t, props.Keywords)
	assert.Empty(t, props.Keywords)
	assert.NotNil(t, props.PriorityInstruments)
	assert.Empty(t, props.Summary)
	assert.Equal(t, "2026-10-15 Daily Trading Digest", props.Title)
	assert.Len(t, props.MissingMarketFields(), 5)
}

func TestExtract_SectionIsBoundedByNextTopLevelSection(t *testing.T) {
	text := "## 0. 시장 레짐\n| 항목 | 값 |\n## 1. 다른 섹션\n| 시장 모드 | 리스크온 |\n"
	props := newTestExtractor().Extract(text)
	assert.Equal(t, models.Unknown, props.MarketMode)
}

func TestExtract_SubsectionsStayInsideSection(t *testing.T) {
	text := "## 0. 시장 레짐\n### 세부\n| **시장 모드** | **중립** |\n"
	props := newTestExtractor().Extract(text)
	assert.Equal(t, "중립", props.MarketMode)
}

func TestExtract_KeywordsCappedAndWindowed(t *testing.T) {
	e := newTestExtractor()

	all := "금리 연준 인플레이션 물가 환율 달러 채권 국채"
	assert.Equal(t, []string{"금리", "연준", "인플레이션", "물가", "환율", "달러"}, e.Extract(all).Keywords)

	late := strings.Repeat("x", 2000) + " 금리"
	assert.Empty(t, e.Extract(late).Keywords)
}

func TestExtract_TitleTruncated(t *testing.T) {
	text := "한줄 요약: " + strings.Repeat("긴", 300)
	props := newTestExtractor().Extract(text)
	assert.Equal(t, 100, len([]rune(props.Title)))
}

func TestExtract_PriorityInstrumentsOnlyFromMarkerLine(t *testing.T) {
	text := "우선순위 종목: 현대차(005380)\n기타: 기아(000270)"
	props := newTestExtractor().Extract(text)
	assert.Equal(t, []string{"현대차(005380)"}, props.PriorityInstruments)
}

func TestTemplate_WithConfig(t *testing.T) {
	cfg := common.TemplateConfig{
		Keywords:    []string{"oil", "gold"},
		MaxKeywords: 1,
		Ranges: map[string]common.RangeConfig{
			"usdkrw": {Min: 100, Max: 200},
		},
	}
	base := DefaultTemplate()
	tmpl := base.WithConfig(cfg, common.FixedZone(0))

	e := NewExtractor(tmpl, WithClock(fixedClock))
	props := e.Extract("gold and oil\nUSD/KRW: 150")

	assert.Equal(t, []string{"oil"}, props.Keywords)
	assert.Equal(t, 150.0, props.USDKRW)
	assert.Equal(t, "2026-10-14", props.Date.Format("2006-01-02"))

	require.Len(t, base.Keywords, 16, "overrides must not mutate the base template")
	assert.Equal(t, 1000.0, base.NumericRules[3].Range.Min)
}

func TestTemplate_WithConfigKeepsExclusiveMinimum(t *testing.T) {
	cfg := common.TemplateConfig{
		Ranges: map[string]common.RangeConfig{"sp500": {Min: 2000}},
	}
	e := NewExtractor(DefaultTemplate().WithConfig(cfg, nil), WithClock(fixedClock))

	assert.Zero(t, e.Extract("S&P 500: 2000").SP500, "the built-in bound stays exclusive")
	assert.Equal(t, 2000.5, e.Extract("S&P 500: 2000.5").SP500)

	inclusive := false
	cfg.Ranges["sp500"] = common.RangeConfig{Min: 2000, MinExclusive: &inclusive}
	e = NewExtractor(DefaultTemplate().WithConfig(cfg, nil), WithClock(fixedClock))
	assert.Equal(t, 2000.0, e.Extract("S&P 500: 2000").SP500)
}

func TestRange_Contains(t *testing.T) {
	open := Range{Min: 1000, MinExclusive: true}
	assert.False(t, open.Contains(1000))
	assert.True(t, open.Contains(1000.1))

	closed := Range{Min: 0.5, Max: 10}
	assert.True(t, closed.Contains(0.5))
	assert.True(t, closed.Contains(10))
	assert.False(t, closed.Contains(10.01))
}
