// Package yahoo provides a client for the public Yahoo Finance chart API
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/vire-digest/internal/common"
	"github.com/bobmcallan/vire-digest/internal/interfaces"
	"github.com/bobmcallan/vire-digest/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Symbols maps market fields to Yahoo chart symbols
var Symbols = map[models.MarketField]string{
	models.FieldVIX:     "^VIX",
	models.FieldSP500:   "^GSPC",
	models.FieldKOSPI:   "^KS11",
	models.FieldUSDKRW:  "KRW=X",
	models.FieldBond10Y: "^TNX",
}

// Client implements QuoteSource using the chart endpoint.
// No API key is required.
type Client struct {
	baseURL    string
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

// WithLogger sets the logger
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new chart API client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
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

// Name identifies the source
func (c *Client) Name() string {
	return "yahoo"
}

// chartResponse is the subset of the chart payload we read.
// Close values are null on days without a print.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetLatestClose returns the last non-null daily close over the past five sessions
func (c *Client) GetLatestClose(ctx context.Context, field models.MarketField) (*models.RealTimeQuote, error) {
	symbol, ok := Symbols[field]
	if !ok {
		return nil, fmt.Errorf("no chart symbol for field %s", field)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("range", "5d")
	params.Set("interval", "1d")
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Str("elapsed", elapsed.String()).Msg("Chart API request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("symbol", symbol).Int("status", resp.StatusCode).Msg("Chart API non-OK response")
		return nil, fmt.Errorf("chart API error: status %d for symbol %s", resp.StatusCode, symbol)
	}

	var apiResp chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if e := apiResp.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart API error for %s: %s %s", symbol, e.Code, e.Description)
	}
	if len(apiResp.Chart.Result) == 0 || len(apiResp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	result := apiResp.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] == nil {
			continue
		}
		ts := time.Now()
		if i < len(result.Timestamp) {
			ts = time.Unix(result.Timestamp[i], 0).UTC()
		}

		c.logger.Debug().Str("symbol", symbol).Str("close", strconv.FormatFloat(*closes[i], 'f', -1, 64)).Str("elapsed", elapsed.String()).Msg("Chart API call")

		return &models.RealTimeQuote{
			Symbol:    symbol,
			Close:     *closes[i],
			Timestamp: ts,
			Source:    c.Name(),
		}, nil
	}

	return nil, fmt.Errorf("no close values for %s", symbol)
}

// Ensure Client implements QuoteSource
var _ interfaces.QuoteSource = (*Client)(nil)
