// Package notion creates digest pages in a Notion database
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/vire-digest/internal/common"
	"github.com/bobmcallan/vire-digest/internal/interfaces"
	"github.com/bobmcallan/vire-digest/internal/models"
)

const (
	DefaultBaseURL   = "https://api.notion.com/v1"
	DefaultVersion   = "2022-06-28"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 3 // requests per second
	DefaultMaxBlocks = 100

	// MaxRichText is the per-object content limit of the API
	MaxRichText = 2000
	// maxOptionName is the limit for select and multi_select option names
	maxOptionName = 100
)

// Database property names
const (
	PropTitle               = "Name"
	PropDate                = "Date"
	PropMarketMode          = "Market Mode"
	PropGlobalSentiment     = "Global Sentiment"
	PropMarketAtmosphere    = "Market Atmosphere"
	PropConfidence          = "Confidence"
	PropVIX                 = "VIX"
	PropSP500               = "S&P 500"
	PropKOSPI               = "KOSPI"
	PropUSDKRW              = "USD/KRW"
	PropBond10Y             = "US 10Y"
	PropKeywords            = "Keywords"
	PropPriorityInstruments = "Priority Instruments"
	PropSummary             = "Summary"
)

// Client implements DocumentWriter
type Client struct {
	baseURL    string
	apiKey     string
	databaseID string
	version    string
	maxBlocks  int
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithVersion sets the Notion-Version header
func WithVersion(version string) ClientOption {
	return func(c *Client) {
		if version != "" {
			c.version = version
		}
	}
}

// WithMaxBlocks caps the number of child blocks sent with a page
func WithMaxBlocks(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBlocks = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a Notion client bound to one database
func NewClient(apiKey, databaseID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		databaseID: databaseID,
		version:    DefaultVersion,
		maxBlocks:  DefaultMaxBlocks,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a Notion API error
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Notion API error: %s: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

type pageRequest struct {
	Parent     map[string]string `json:"parent"`
	Properties map[string]any    `json:"properties"`
	Children   []Block           `json:"children,omitempty"`
}

type pageResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreatePage creates one database page holding the digest properties and its
// first maxBlocks content blocks
func (c *Client) CreatePage(ctx context.Context, digest *models.Digest) (string, error) {
	if c.apiKey == "" || c.databaseID == "" {
		return "", fmt.Errorf("notion api key and database id are required")
	}

	blocks := digest.Blocks
	if len(blocks) > c.maxBlocks {
		c.logger.Warn().Int("blocks", len(blocks)).Int("max", c.maxBlocks).Msg("Truncating Notion page content")
		blocks = blocks[:c.maxBlocks]
	}

	body := pageRequest{
		Parent:     map[string]string{"database_id": c.databaseID},
		Properties: BuildProperties(digest.Properties),
		Children:   BuildBlocks(blocks),
	}

	var page pageResponse
	if err := c.post(ctx, "/pages", body, &page); err != nil {
		return "", err
	}

	c.logger.Info().Str("page_id", page.ID).Int("blocks", len(body.Children)).Msg("Created Notion page")
	return page.ID, nil
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var decoded struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &decoded) == nil && decoded.Code != "" {
			apiErr.Code = decoded.Code
			apiErr.Message = decoded.Message
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Ensure Client implements DocumentWriter
var _ interfaces.DocumentWriter = (*Client)(nil)
