package backfill

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-digest/internal/common"
	"github.com/bobmcallan/vire-digest/internal/models"
)

// --- Mocks ---

type mockSource struct {
	name   string
	closes map[models.MarketField]float64
	err    error
	delay  time.Duration

	mu    sync.Mutex
	calls []models.MarketField
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) GetLatestClose(ctx context.Context, field models.MarketField) (*models.RealTimeQuote, error) {
	m.mu.Lock()
	m.calls = append(m.calls, field)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.closes[field]
	if !ok {
		return nil, errors.New("no data")
	}
	return &models.RealTimeQuote{Symbol: string(field), Close: v, Source: m.name}, nil
}

func (m *mockSource) called() []models.MarketField {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.MarketField(nil), m.calls...)
}

var allCloses = map[models.MarketField]float64{
	models.FieldVIX:     17.456,
	models.FieldSP500:   5812.44,
	models.FieldKOSPI:   2650.6,
	models.FieldUSDKRW:  1385.49,
	models.FieldBond10Y: 4.2537,
}

func newProps() models.DigestProperties {
	return models.NewDigestProperties(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
}

func TestBackfill_FillsAllMissingWithPrecision(t *testing.T) {
	primary := &mockSource{name: "primary", closes: allCloses}
	svc := NewService(primary, nil, time.Second, common.NewSilentLogger())

	props := svc.Backfill(context.Background(), newProps())

	assert.Equal(t, 17.46, props.VIX)
	assert.Equal(t, 5812.4, props.SP500)
	assert.Equal(t, 2651.0, props.KOSPI)
	assert.Equal(t, 1385.0, props.USDKRW)
	assert.InDelta(t, 0.0425, props.Bond10Y, 1e-9)
	assert.Empty(t, props.MissingMarketFields())
}

func TestBackfill_NeverOverwritesExtractedValue(t *testing.T) {
	primary := &mockSource{name: "primary", closes: allCloses}
	svc := NewService(primary, nil, time.Second, common.NewSilentLogger())

	in := newProps()
	in.VIX = 21.3

	props := svc.Backfill(context.Background(), in)

	assert.Equal(t, 21.3, props.VIX)
	assert.Equal(t, 5812.4, props.SP500)
	assert.NotContains(t, primary.called(), models.FieldVIX, "present fields are not looked up")
}

func TestBackfill_SkippedWhenNothingMissing(t *testing.T) {
	primary := &mockSource{name: "primary", closes: allCloses}
	svc := NewService(primary, nil, time.Second, common.NewSilentLogger())

	in := newProps()
	in.VIX, in.SP500, in.KOSPI, in.USDKRW, in.Bond10Y = 20, 5000, 2500, 1300, 0.04

	props := svc.Backfill(context.Background(), in)

	assert.Equal(t, in, props)
	assert.Empty(t, primary.called())
}

func TestBackfill_FallsBackToSecondary(t *testing.T) {
	primary := &mockSource{name: "primary", closes: map[models.MarketField]float64{
		models.FieldVIX: 18,
	}}
	secondary := &mockSource{name: "secondary", closes: allCloses}
	svc := NewService(primary, secondary, time.Second, common.NewSilentLogger())

	props := svc.Backfill(context.Background(), newProps())

	assert.Equal(t, 18.0, props.VIX, "primary wins when it has data")
	assert.Equal(t, 2651.0, props.KOSPI)
	assert.NotContains(t, secondary.called(), models.FieldVIX)
}

func TestBackfill_UnavailableSourcesLeaveDefaults(t *testing.T) {
	primary := &mockSource{name: "primary", err: errors.New("connection refused")}
	svc := NewService(primary, nil, time.Second, common.NewSilentLogger())

	in := newProps()
	in.SP500 = 5800

	props := svc.Backfill(context.Background(), in)

	assert.Equal(t, 5800.0, props.SP500)
	assert.Zero(t, props.VIX)
	assert.Zero(t, props.Bond10Y)
	assert.Len(t, primary.called(), 4)
}

func TestBackfill_SlowSourceTimesOut(t *testing.T) {
	primary := &mockSource{name: "primary", closes: allCloses, delay: time.Second}
	svc := NewService(primary, nil, 20*time.Millisecond, common.NewSilentLogger())

	start := time.Now()
	props := svc.Backfill(context.Background(), newProps())

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Len(t, props.MissingMarketFields(), 5)
}

func TestMergeMissing(t *testing.T) {
	in := newProps()
	in.KOSPI = 2500

	out := mergeMissing(in, map[models.MarketField]float64{
		models.FieldKOSPI:  2700,
		models.FieldUSDKRW: 1390,
	})

	require.Equal(t, 2500.0, out.KOSPI)
	assert.Equal(t, 1390.0, out.USDKRW)
	assert.Zero(t, in.USDKRW, "input is not mutated")
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 15.83, Normalize(models.FieldVIX, 15.826))
	assert.Equal(t, 4.1, Normalize(models.FieldSP500, 4.05000001))
	assert.Equal(t, 1386.0, Normalize(models.FieldUSDKRW, 1385.5))
	assert.InDelta(t, 0.0411, Normalize(models.FieldBond10Y, 4.114), 1e-12)
}
