// Package common provides shared utilities for the digest pipeline
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for vire-digest
type Config struct {
	Environment string         `toml:"environment"`
	Profile     string         `toml:"profile"`
	Digest      DigestConfig   `toml:"digest"`
	Template    TemplateConfig `toml:"template"`
	Backfill    BackfillConfig `toml:"backfill"`
	Clients     ClientsConfig  `toml:"clients"`
	Delivery    DeliveryConfig `toml:"delivery"`
	Report      ReportConfig   `toml:"report"`
	Logging     LoggingConfig  `toml:"logging"`
}

// DigestConfig controls news collection and digest generation
type DigestConfig struct {
	TimeWindowHours  int      `toml:"time_window_hours"`
	MaxGDELTRecords  int      `toml:"max_gdelt_records"`
	MaxNewsInContext int      `toml:"max_news_in_context"`
	NewsKeywords     []string `toml:"news_keywords"`
	ThemeQuery       string   `toml:"theme_query"`
	PromptFile       string   `toml:"prompt_file"` // relative to the config directory
	UTCOffsetHours   int      `toml:"utc_offset_hours"`
}

// TemplateConfig overrides parts of the extraction template.
// Empty values keep the built-in template.
type TemplateConfig struct {
	Keywords    []string               `toml:"keywords"`
	MaxKeywords int                    `toml:"max_keywords"`
	TitleMaxLen int                    `toml:"title_max_len"`
	Ranges      map[string]RangeConfig `toml:"ranges"`
}

// RangeConfig is a plausibility range for one numeric field.
// MinExclusive keeps the built-in bound type when unset.
type RangeConfig struct {
	Min          float64 `toml:"min"`
	Max          float64 `toml:"max"`
	MinExclusive *bool   `toml:"min_exclusive"`
}

// BackfillConfig controls the market-data fallback
type BackfillConfig struct {
	Enabled bool   `toml:"enabled"`
	Timeout string `toml:"timeout"` // per instrument lookup
}

// GetTimeout parses and returns the per-lookup timeout
func (c *BackfillConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	GDELT  GDELTConfig  `toml:"gdelt"`
	Gemini GeminiConfig `toml:"gemini"`
	Yahoo  YahooConfig  `toml:"yahoo"`
	EODHD  EODHDConfig  `toml:"eodhd"`
	Notion NotionConfig `toml:"notion"`
}

// GDELTConfig holds GDELT DOC API configuration
type GDELTConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *GDELTConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// YahooConfig holds the public chart API configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// NotionConfig holds Notion API configuration
type NotionConfig struct {
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	DatabaseID string `toml:"database_id"`
	Version    string `toml:"version"`
	MaxBlocks  int    `toml:"max_blocks"`
	Timeout    string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *NotionConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// DeliveryConfig holds the outbound delivery channels
type DeliveryConfig struct {
	Slack SlackConfig `toml:"slack"`
	Email EmailConfig `toml:"email"`
}

// SlackConfig holds Slack webhook configuration
type SlackConfig struct {
	WebhookURL string `toml:"webhook_url"`
	ChunkSize  int    `toml:"chunk_size"`
	Timeout    string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *SlackConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 20*time.Second)
}

// EmailConfig holds SMTP delivery configuration
type EmailConfig struct {
	Host     string   `toml:"host"`
	Port     int      `toml:"port"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	From     string   `toml:"from"`
	To       []string `toml:"to"`
	Timeout  string   `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EmailConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// IsComplete reports whether every SMTP setting needed to send is present
func (c *EmailConfig) IsComplete() bool {
	return c.Host != "" && c.Port > 0 && c.Username != "" && c.Password != "" && c.From != "" && len(c.To) > 0
}

// ReportConfig holds run report output configuration
type ReportConfig struct {
	Dir   string `toml:"dir"`
	RunID string `toml:"run_id"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// DefaultNewsKeywords seeds the news search query
var DefaultNewsKeywords = []string{
	"금리", "연준", "inflation", "물가", "환율", "달러", "채권", "국채", "나스닥", "반도체",
	"s&p", "ai", "경기침체", "고용", "pmi", "federal reserve", "china policy", "commodity",
	"geopolitical risk",
}

// DefaultThemeQuery narrows the news search to market-moving themes
const DefaultThemeQuery = "(politics OR geopolitical OR economy OR market OR earnings OR m&a OR guidance OR disclosure OR policy)"

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Profile:     "default",
		Digest: DigestConfig{
			TimeWindowHours:  24,
			MaxGDELTRecords:  120,
			MaxNewsInContext: 70,
			NewsKeywords:     append([]string(nil), DefaultNewsKeywords...),
			ThemeQuery:       DefaultThemeQuery,
			PromptFile:       "prompts/digest_rice.md",
			UTCOffsetHours:   9,
		},
		Backfill: BackfillConfig{
			Enabled: true,
			Timeout: "10s",
		},
		Clients: ClientsConfig{
			GDELT: GDELTConfig{
				BaseURL: "https://api.gdeltproject.org/api/v2/doc/doc",
				Timeout: "30s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.5-flash",
			},
			Yahoo: YahooConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "10s",
			},
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			Notion: NotionConfig{
				BaseURL:   "https://api.notion.com/v1",
				Version:   "2022-06-28",
				MaxBlocks: 100,
				Timeout:   "30s",
			},
		},
		Delivery: DeliveryConfig{
			Slack: SlackConfig{
				ChunkSize: 3500,
				Timeout:   "20s",
			},
			Email: EmailConfig{
				Timeout: "30s",
			},
		},
		Report: ReportConfig{
			Dir: "artifacts",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Outputs: []string{"console"},
		},
	}
}

// ProfilePath returns the profile overlay file inside a config directory
func ProfilePath(configDir, profile string) string {
	return filepath.Join(configDir, "profiles", profile+".toml")
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	normalizeKeywords(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DIGEST_ENV"); env != "" {
		config.Environment = env
	}
	if profile := strings.TrimSpace(os.Getenv("DIGEST_PROFILE")); profile != "" {
		config.Profile = profile
	}
	if level := os.Getenv("DIGEST_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	setInt(&config.Digest.TimeWindowHours, "TIME_WINDOW_HOURS")
	setInt(&config.Digest.MaxGDELTRecords, "MAX_GDELT_RECORDS")
	setInt(&config.Digest.MaxNewsInContext, "MAX_NEWS_IN_CONTEXT")

	setString(&config.Clients.Gemini.APIKey, "GOOGLE_API_KEY")
	if model := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); model != "" {
		config.Clients.Gemini.Model = model
	}
	setString(&config.Clients.EODHD.APIKey, "EODHD_API_KEY")
	setString(&config.Clients.Notion.APIKey, "NOTION_API_KEY")
	setString(&config.Clients.Notion.DatabaseID, "NOTION_DATABASE_ID")

	setString(&config.Delivery.Slack.WebhookURL, "SLACK_WEBHOOK_URL")
	setInt(&config.Delivery.Slack.ChunkSize, "SLACK_CHUNK_SIZE")

	setString(&config.Delivery.Email.Host, "SMTP_HOST")
	setInt(&config.Delivery.Email.Port, "SMTP_PORT")
	setString(&config.Delivery.Email.Username, "SMTP_USER")
	setString(&config.Delivery.Email.Password, "SMTP_PASS")
	setString(&config.Delivery.Email.From, "MAIL_FROM")
	if to := os.Getenv("MAIL_TO"); to != "" {
		config.Delivery.Email.To = SplitList(to)
	}

	setString(&config.Report.Dir, "REPORT_DIR")
	setString(&config.Report.RunID, "GITHUB_RUN_ID")
}

// normalizeKeywords drops blank news keywords, restoring the defaults if none remain
func normalizeKeywords(config *Config) {
	var kept []string
	for _, kw := range config.Digest.NewsKeywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			kept = append(kept, kw)
		}
	}
	if len(kept) == 0 {
		kept = append([]string(nil), DefaultNewsKeywords...)
	}
	config.Digest.NewsKeywords = kept
}

// SplitList splits a comma separated value, dropping empty entries
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// Location returns the fixed zone digests are dated in
func (c *Config) Location() *time.Location {
	return FixedZone(c.Digest.UTCOffsetHours)
}

// FixedZone returns a fixed UTC offset zone named like "UTC+9"
func FixedZone(offsetHours int) *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*60*60)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
