// Package digest runs the daily digest pipeline: collect news, generate the
// digest, derive blocks and properties, deliver, and record a run report.
package digest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/bobmcallan/vire-digest/internal/clients/gdelt"
	"github.com/bobmcallan/vire-digest/internal/common"
	core "github.com/bobmcallan/vire-digest/internal/digest"
	"github.com/bobmcallan/vire-digest/internal/interfaces"
	"github.com/bobmcallan/vire-digest/internal/models"
	"github.com/bobmcallan/vire-digest/internal/services/report"
)

var (
	// ErrNoNews is returned when the news search yields no usable articles
	ErrNoNews = errors.New("no recent articles from GDELT, try broadening keywords or increasing max records")

	// ErrNoDelivery is returned when every attempted delivery channel failed
	ErrNoDelivery = errors.New("every attempted delivery failed")
)

// Deps are the collaborators of the pipeline.
// Nil delivery collaborators are reported as skipped; a nil Backfill disables backfill.
type Deps struct {
	News      interfaces.NewsClient
	Generator interfaces.DigestGenerator
	Extractor *core.Extractor
	Backfill  interfaces.BackfillService
	Chat      interfaces.ChatSender
	Mail      interfaces.MailService
	Documents interfaces.DocumentWriter
	Reports   interfaces.ReportService

	Prompt     string
	PromptPath string
}

// Result is the outcome of one Run. Report is always set.
type Result struct {
	Digest       *models.Digest
	Report       *models.RunReport
	JSONPath     string
	MarkdownPath string
}

// Service sequences the pipeline stages
type Service struct {
	cfg    *common.Config
	deps   Deps
	logger arbor.ILogger
	now    func() time.Time
}

// NewService creates the pipeline service
func NewService(cfg *common.Config, deps Deps, logger arbor.ILogger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if deps.Extractor == nil {
		deps.Extractor = core.NewExtractor(core.DefaultTemplate(), core.WithLogger(logger))
	}
	return &Service{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

// Build derives properties and blocks from digest text.
// Properties are extracted first, then missing market fields are backfilled;
// blocks are parsed independently from the same text.
func (s *Service) Build(ctx context.Context, text string) *models.Digest {
	props := s.deps.Extractor.Extract(text)

	if s.deps.Backfill != nil && s.cfg.Backfill.Enabled {
		props = s.deps.Backfill.Backfill(ctx, props)
	}

	return &models.Digest{
		Markdown:   text,
		Blocks:     core.ParseBlocks(text),
		Properties: props,
	}
}

// Run executes the full pipeline. The run report is written whether or not the run succeeds.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	rep := models.NewRunReport(report.NewRunID(s.cfg.Report.RunID), s.now(), s.configSummary())
	result := &Result{Report: rep}

	err := s.run(ctx, result)
	if err != nil {
		rep.Error = err.Error()
		s.logger.Error().Err(err).Str("run_id", rep.RunID).Msg("Digest run failed")
	} else {
		rep.Status = models.RunStatusSuccess
	}

	if s.deps.Reports != nil {
		jsonPath, mdPath, werr := s.deps.Reports.WriteRunReport(rep)
		if werr != nil {
			s.logger.Error().Err(werr).Msg("Failed to write run report")
		}
		result.JSONPath, result.MarkdownPath = jsonPath, mdPath
	}

	return result, err
}

func (s *Service) run(ctx context.Context, result *Result) error {
	rep := result.Report
	dc := s.cfg.Digest

	if s.deps.News == nil || s.deps.Generator == nil {
		return errors.New("news client and digest generator are required (is GOOGLE_API_KEY set?)")
	}

	query := gdelt.BuildQuery(dc.NewsKeywords, dc.ThemeQuery)
	window := time.Duration(dc.TimeWindowHours) * time.Hour

	items, err := s.deps.News.FetchRecent(ctx, query, window, dc.MaxGDELTRecords)
	if err != nil {
		return fmt.Errorf("fetch news: %w", err)
	}
	if dc.MaxNewsInContext > 0 && len(items) > dc.MaxNewsInContext {
		items = items[:dc.MaxNewsInContext]
	}
	rep.NewsCount = len(items)
	if len(items) == 0 {
		return ErrNoNews
	}

	text, err := s.deps.Generator.GenerateDigest(ctx, s.deps.Prompt, items)
	if err != nil {
		return fmt.Errorf("generate digest: %w", err)
	}

	d := s.Build(ctx, text)
	result.Digest = d
	rep.Properties = &d.Properties
	rep.BlockCount = len(d.Blocks)

	s.deliver(ctx, d, rep)

	if rep.AllAttemptedFailed() {
		return ErrNoDelivery
	}
	return nil
}

// deliver sends the digest to every channel independently
func (s *Service) deliver(ctx context.Context, d *models.Digest, rep *models.RunReport) {
	rep.Delivery[models.ChannelSlack] = s.deliverSlack(ctx, d)
	rep.Delivery[models.ChannelEmail] = s.deliverEmail(ctx, d)
	rep.Delivery[models.ChannelNotion] = s.deliverNotion(ctx, d)

	for _, ch := range []string{models.ChannelSlack, models.ChannelEmail, models.ChannelNotion} {
		st := rep.Delivery[ch]
		event := s.logger.Info()
		if st.Attempted && !st.Success {
			event = s.logger.Warn()
		}
		event.Str("channel", ch).Bool("success", st.Success).Str("detail", st.Detail).Msg("Delivery result")
	}
}

func (s *Service) deliverSlack(ctx context.Context, d *models.Digest) models.DeliveryStatus {
	if s.deps.Chat == nil {
		return models.Skipped("webhook_not_configured")
	}
	n, err := s.deps.Chat.Send(ctx, d.Markdown)
	if err != nil {
		return models.DeliveryFailed(err)
	}
	return models.Delivered("sent_chunks=" + strconv.Itoa(n))
}

func (s *Service) deliverEmail(ctx context.Context, d *models.Digest) models.DeliveryStatus {
	if s.deps.Mail == nil || !s.deps.Mail.Enabled() {
		return models.Skipped("smtp_not_fully_configured")
	}
	n, err := s.deps.Mail.SendDigest(ctx, d.Markdown)
	if err != nil {
		return models.DeliveryFailed(err)
	}
	return models.Delivered("recipients=" + strconv.Itoa(n))
}

func (s *Service) deliverNotion(ctx context.Context, d *models.Digest) models.DeliveryStatus {
	if s.deps.Documents == nil {
		return models.Skipped("notion_not_configured")
	}
	id, err := s.deps.Documents.CreatePage(ctx, d)
	if err != nil {
		return models.DeliveryFailed(err)
	}
	return models.Delivered("page_id=" + id)
}

func (s *Service) configSummary() models.RunConfigSummary {
	return models.RunConfigSummary{
		Profile:          s.cfg.Profile,
		TimeWindowHours:  s.cfg.Digest.TimeWindowHours,
		MaxGDELTRecords:  s.cfg.Digest.MaxGDELTRecords,
		MaxNewsInContext: s.cfg.Digest.MaxNewsInContext,
		KeywordCount:     len(s.cfg.Digest.NewsKeywords),
		PromptPath:       s.deps.PromptPath,
	}
}
