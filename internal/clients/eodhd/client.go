// Package eodhd provides a client for the EODHD end-of-day API
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
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

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
	DefaultLookback  = 7 * 24 * time.Hour
)

// Tickers maps market fields to EODHD instrument codes
var Tickers = map[models.MarketField]string{
	models.FieldVIX:     "VIX.INDX",
	models.FieldSP500:   "GSPC.INDX",
	models.FieldKOSPI:   "KS11.INDX",
	models.FieldUSDKRW:  "USDKRW.FOREX",
	models.FieldBond10Y: "US10Y.GBOND",
}

// Client implements QuoteSource over the EODHD EOD endpoint
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	now        func() time.Time
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

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Name identifies the source
func (c *Client) Name() string {
	return "eodhd"
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// eodBarResponse represents one bar of the EOD endpoint
type eodBarResponse struct {
	Date          string      `json:"date"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	AdjustedClose flexFloat64 `json:"adjusted_close"`
	Volume        int64       `json:"volume"`
}

// GetEOD retrieves daily bars for a ticker between from and to, most recent first
func (c *Client) GetEOD(ctx context.Context, ticker string, from, to time.Time) ([]models.EODBar, error) {
	params := url.Values{}
	params.Set("period", "d")
	params.Set("order", "d")
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))

	var bars []eodBarResponse
	if err := c.get(ctx, "/eod/"+ticker, params, &bars); err != nil {
		return nil, err
	}

	out := make([]models.EODBar, 0, len(bars))
	for _, bar := range bars {
		date, _ := time.Parse("2006-01-02", bar.Date)
		out = append(out, models.EODBar{
			Date:     date,
			Open:     float64(bar.Open),
			High:     float64(bar.High),
			Low:      float64(bar.Low),
			Close:    float64(bar.Close),
			AdjClose: float64(bar.AdjustedClose),
			Volume:   bar.Volume,
		})
	}
	return out, nil
}

// GetLatestClose returns the most recent non-zero close over the last week
func (c *Client) GetLatestClose(ctx context.Context, field models.MarketField) (*models.RealTimeQuote, error) {
	ticker, ok := Tickers[field]
	if !ok {
		return nil, fmt.Errorf("no EODHD ticker for field %s", field)
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("EODHD API key not configured")
	}

	to := c.now()
	bars, err := c.GetEOD(ctx, ticker, to.Add(-DefaultLookback), to)
	if err != nil {
		return nil, err
	}

	latest := models.EODBar{}
	for _, bar := range bars {
		if bar.Close != 0 && bar.Date.After(latest.Date) {
			latest = bar
		}
	}
	if latest.Close == 0 {
		return nil, fmt.Errorf("no EOD data for %s", ticker)
	}

	return &models.RealTimeQuote{
		Symbol:    ticker,
		Close:     latest.Close,
		Timestamp: latest.Date,
		Source:    c.Name(),
	}, nil
}

// Ensure Client implements QuoteSource
var _ interfaces.QuoteSource = (*Client)(nil)
