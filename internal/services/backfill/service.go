// Package backfill fills market properties the extractor left at their defaults
package backfill

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/vire-digest/internal/common"
	"github.com/bobmcallan/vire-digest/internal/digest"
	"github.com/bobmcallan/vire-digest/internal/interfaces"
	"github.com/bobmcallan/vire-digest/internal/models"
)

// DefaultTimeout bounds each instrument lookup
const DefaultTimeout = 10 * time.Second

var errNoData = errors.New("quote source returned no close")

// normalization converts a raw close into the stored property value
type normalization struct {
	scale     float64
	precision int
}

var normalizations = map[models.MarketField]normalization{
	models.FieldVIX:     {scale: 1, precision: 2},
	models.FieldSP500:   {scale: 1, precision: 1},
	models.FieldKOSPI:   {scale: 1, precision: 0},
	models.FieldUSDKRW:  {scale: 1, precision: 0},
	models.FieldBond10Y: {scale: 0.01, precision: 4},
}

// Normalize applies the per-field scale and rounding to a raw close
func Normalize(field models.MarketField, close float64) float64 {
	n, ok := normalizations[field]
	if !ok {
		return close
	}
	return digest.Round(close*n.scale, n.precision)
}

// Service implements BackfillService with a primary and optional secondary quote source.
type Service struct {
	primary   interfaces.QuoteSource
	secondary interfaces.QuoteSource
	timeout   time.Duration
	logger    arbor.ILogger
}

// NewService creates a backfill service.
// secondary may be nil, in which case only the primary source is queried.
func NewService(primary, secondary interfaces.QuoteSource, timeout time.Duration, logger arbor.ILogger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		primary:   primary,
		secondary: secondary,
		timeout:   timeout,
		logger:    logger,
	}
}

// Backfill looks up every market field still at its default and fills the ones
// a source returns. Extracted values are never replaced.
func (s *Service) Backfill(ctx context.Context, props models.DigestProperties) models.DigestProperties {
	missing := props.MissingMarketFields()
	if len(missing) == 0 {
		return props
	}

	s.logger.Info().Strs("fields", fieldNames(missing)).Msg("Backfilling market fields from quote sources")

	fetched := s.fetch(ctx, missing)
	return mergeMissing(props, fetched)
}

// fetch queries every field concurrently. Each goroutine writes only its own slot.
func (s *Service) fetch(ctx context.Context, fields []models.MarketField) map[models.MarketField]float64 {
	values := make([]float64, len(fields))

	g, gctx := errgroup.WithContext(ctx)
	for i, field := range fields {
		g.Go(func() error {
			values[i] = s.lookup(gctx, field)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[models.MarketField]float64, len(fields))
	for i, field := range fields {
		if values[i] != 0 {
			out[field] = values[i]
		}
	}
	return out
}

// lookup tries the primary then the secondary source, returning 0 when neither has data
func (s *Service) lookup(ctx context.Context, field models.MarketField) float64 {
	for _, src := range []interfaces.QuoteSource{s.primary, s.secondary} {
		if src == nil {
			continue
		}

		v, err := s.lookupFrom(ctx, src, field)
		if err != nil {
			s.logger.Warn().Err(err).Str("field", string(field)).Str("source", src.Name()).Msg("Quote lookup failed")
			continue
		}

		s.logger.Debug().Str("field", string(field)).Str("source", src.Name()).
			Str("value", strconv.FormatFloat(v, 'f', -1, 64)).Msg("Quote lookup succeeded")
		return v
	}

	s.logger.Warn().Str("field", string(field)).Msg("Market field left at default, no quote source had data")
	return 0
}

func (s *Service) lookupFrom(ctx context.Context, src interfaces.QuoteSource, field models.MarketField) (float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	quote, err := src.GetLatestClose(callCtx, field)
	if err != nil {
		return 0, err
	}
	if quote == nil || quote.Close <= 0 {
		return 0, errNoData
	}
	return Normalize(field, quote.Close), nil
}

// mergeMissing copies fetched values into fields that are still zero
func mergeMissing(props models.DigestProperties, fetched map[models.MarketField]float64) models.DigestProperties {
	for field, v := range fetched {
		if props.MarketValue(field) != 0 {
			continue
		}
		props.SetMarketValue(field, v)
	}
	return props
}

func fieldNames(fields []models.MarketField) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

// Ensure Service implements BackfillService
var _ interfaces.BackfillService = (*Service)(nil)
