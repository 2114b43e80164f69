// Package app wires configuration, clients and services into a runnable pipeline
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/bobmcallan/vire-digest/internal/clients/eodhd"
	"github.com/bobmcallan/vire-digest/internal/clients/gdelt"
	"github.com/bobmcallan/vire-digest/internal/clients/gemini"
	"github.com/bobmcallan/vire-digest/internal/clients/notion"
	"github.com/bobmcallan/vire-digest/internal/clients/slack"
	"github.com/bobmcallan/vire-digest/internal/clients/yahoo"
	"github.com/bobmcallan/vire-digest/internal/common"
	core "github.com/bobmcallan/vire-digest/internal/digest"
	"github.com/bobmcallan/vire-digest/internal/interfaces"
	"github.com/bobmcallan/vire-digest/internal/models"
	"github.com/bobmcallan/vire-digest/internal/services/backfill"
	"github.com/bobmcallan/vire-digest/internal/services/digest"
	"github.com/bobmcallan/vire-digest/internal/services/mailer"
	"github.com/bobmcallan/vire-digest/internal/services/report"
)

// DefaultConfigDir is used when neither a flag nor DIGEST_CONFIG_DIR names one
const DefaultConfigDir = "config"

// App holds the initialized clients and services for one process
type App struct {
	Config     *common.Config
	Logger     arbor.ILogger
	ConfigDir  string
	PromptPath string

	Extractor *core.Extractor
	Backfill  *backfill.Service
	Pipeline  *digest.Service

	StartupTime time.Time
}

// Options select where configuration comes from
type Options struct {
	ConfigDir string
	// Profile overrides the profile named in the base config
	Profile string
}

// ResolveConfigDir picks the config directory: explicit, then DIGEST_CONFIG_DIR, then the default
func ResolveConfigDir(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if dir := os.Getenv("DIGEST_CONFIG_DIR"); dir != "" {
		return dir
	}
	return DefaultConfigDir
}

// LoadConfig reads the base config then layers the selected profile on top
func LoadConfig(opts Options) (*common.Config, string, error) {
	dir := ResolveConfigDir(opts.ConfigDir)
	base := filepath.Join(dir, "digest.toml")

	cfg, err := common.LoadConfig(base)
	if err != nil {
		return nil, dir, err
	}
	if opts.Profile != "" {
		cfg.Profile = opts.Profile
	}

	profile := cfg.Profile
	cfg, err = common.LoadConfig(base, common.ProfilePath(dir, profile))
	if err != nil {
		return nil, dir, err
	}
	if opts.Profile != "" {
		cfg.Profile = opts.Profile
	}
	return cfg, dir, nil
}

// NewApp loads configuration and initializes every client and service
func NewApp(ctx context.Context, opts Options) (*App, error) {
	startupStart := time.Now()
	common.LoadVersionFromBuildInfo()

	cfg, dir, err := LoadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(cfg.Logging)
	return newAppWithConfig(ctx, cfg, dir, logger, startupStart)
}

func newAppWithConfig(ctx context.Context, cfg *common.Config, dir string, logger arbor.ILogger, startupStart time.Time) (*App, error) {
	loc := cfg.Location()

	extractor := core.NewExtractor(
		core.DefaultTemplate().WithConfig(cfg.Template, loc),
		core.WithLogger(logger),
	)

	bf := newBackfill(cfg, logger)

	promptPath := ""
	if cfg.Digest.PromptFile != "" {
		promptPath = cfg.Digest.PromptFile
		if !filepath.IsAbs(promptPath) {
			promptPath = filepath.Join(dir, promptPath)
		}
	}
	prompt := gemini.LoadPrompt(promptPath)

	deps := digest.Deps{
		News: gdelt.NewClient(
			gdelt.WithBaseURL(cfg.Clients.GDELT.BaseURL),
			gdelt.WithTimeout(cfg.Clients.GDELT.GetTimeout()),
			gdelt.WithLogger(logger),
		),
		Extractor:  extractor,
		Mail:       mailer.NewService(cfg.Delivery.Email, loc, logger),
		Reports:    report.NewService(cfg.Report.Dir, logger),
		Prompt:     prompt,
		PromptPath: promptPath,
	}
	if bf != nil {
		deps.Backfill = bf
	}

	if key := cfg.Clients.Gemini.APIKey; key != "" {
		gc, err := gemini.NewClient(ctx, key,
			gemini.WithModel(cfg.Clients.Gemini.Model),
			gemini.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		deps.Generator = gc
	} else {
		logger.Warn().Msg("GOOGLE_API_KEY not configured - digest generation unavailable")
	}

	if sc := cfg.Delivery.Slack; sc.WebhookURL != "" {
		deps.Chat = slack.NewClient(sc.WebhookURL,
			slack.WithChunkSize(sc.ChunkSize),
			slack.WithTimeout(sc.GetTimeout()),
			slack.WithLogger(logger),
		)
	}

	if nc := cfg.Clients.Notion; nc.APIKey != "" && nc.DatabaseID != "" {
		deps.Documents = notion.NewClient(nc.APIKey, nc.DatabaseID,
			notion.WithBaseURL(nc.BaseURL),
			notion.WithVersion(nc.Version),
			notion.WithMaxBlocks(nc.MaxBlocks),
			notion.WithTimeout(nc.GetTimeout()),
			notion.WithLogger(logger),
		)
	}

	a := &App{
		Config:      cfg,
		Logger:      logger,
		ConfigDir:   dir,
		PromptPath:  promptPath,
		Extractor:   extractor,
		Backfill:    bf,
		Pipeline:    digest.NewService(cfg, deps, logger),
		StartupTime: time.Now(),
	}

	logger.Info().
		Str("config_dir", dir).
		Str("profile", cfg.Profile).
		Bool("generator", deps.Generator != nil).
		Bool("slack", deps.Chat != nil).
		Bool("email", cfg.Delivery.Email.IsComplete()).
		Bool("notion", deps.Documents != nil).
		Str("startup", time.Since(startupStart).Round(time.Millisecond).String()).
		Msg("App initialized")

	return a, nil
}

// newBackfill builds the quote fallback chain, or nil when backfill is off
func newBackfill(cfg *common.Config, logger arbor.ILogger) *backfill.Service {
	if !cfg.Backfill.Enabled {
		return nil
	}

	yc := cfg.Clients.Yahoo
	primary := yahoo.NewClient(
		yahoo.WithBaseURL(yc.BaseURL),
		yahoo.WithRateLimit(yc.RateLimit),
		yahoo.WithTimeout(yc.GetTimeout()),
		yahoo.WithLogger(logger),
	)

	var secondary interfaces.QuoteSource
	if ec := cfg.Clients.EODHD; ec.APIKey != "" {
		secondary = eodhd.NewClient(ec.APIKey,
			eodhd.WithBaseURL(ec.BaseURL),
			eodhd.WithRateLimit(ec.RateLimit),
			eodhd.WithTimeout(ec.GetTimeout()),
			eodhd.WithLogger(logger),
		)
	}

	return backfill.NewService(primary, secondary, cfg.Backfill.GetTimeout(), logger)
}

// Run executes one digest pipeline run
func (a *App) Run(ctx context.Context) (*digest.Result, error) {
	return a.Pipeline.Run(ctx)
}

// Parse extracts blocks and properties from existing digest text.
// Market fields are backfilled only when requested and backfill is enabled.
func (a *App) Parse(ctx context.Context, text string, withBackfill bool) *models.Digest {
	props := a.Extractor.Extract(text)
	if withBackfill && a.Backfill != nil {
		props = a.Backfill.Backfill(ctx, props)
	}
	return &models.Digest{
		Markdown:   text,
		Blocks:     core.ParseBlocks(text),
		Properties: props,
	}
}
