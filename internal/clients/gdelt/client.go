// Package gdelt provides a client for the GDELT DOC 2.0 article search API
package gdelt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/vire-digest/internal/common"
	"github.com/bobmcallan/vire-digest/internal/interfaces"
	"github.com/bobmcallan/vire-digest/internal/models"
)

const (
	DefaultBaseURL   = "https://api.gdeltproject.org/api/v2/doc/doc"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 1 // requests per second

	timeLayout = "20060102150405"
)

// fallbackKeywords are used when no configured keyword is searchable
var fallbackKeywords = []string{"inflation", "economy", "market"}

// Client implements NewsClient against the artlist mode
type Client struct {
	baseURL    string
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

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new GDELT client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
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

// BuildQuery OR-joins the searchable keywords and ANDs them with the theme query.
// GDELT rejects non-ASCII and very short terms, so only ASCII keywords of three
// or more characters are kept.
func BuildQuery(keywords []string, themeQuery string) string {
	var terms []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if len(kw) >= 3 && isASCII(kw) {
			terms = append(terms, strconv.Quote(kw))
		}
	}
	if len(terms) == 0 {
		for _, kw := range fallbackKeywords {
			terms = append(terms, strconv.Quote(kw))
		}
	}

	query := "(" + strings.Join(terms, " OR ") + ")"
	if themeQuery = strings.TrimSpace(themeQuery); themeQuery != "" {
		query += " AND " + themeQuery
	}
	return query
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// article is one row of the artlist payload
type article struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	SeenDate      string `json:"seendate"`
	Domain        string `json:"domain"`
	Language      string `json:"language"`
	SourceCountry string `json:"sourcecountry"`
}

type artlistResponse struct {
	Articles []article `json:"articles"`
}

// FetchRecent retrieves up to maxRecords articles matching query, newest first
func (c *Client) FetchRecent(ctx context.Context, query string, window time.Duration, maxRecords int) ([]models.NewsItem, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	end := c.now().UTC()
	start := end.Add(-window)

	params := url.Values{}
	params.Set("query", query)
	params.Set("mode", "artlist")
	params.Set("format", "json")
	params.Set("sort", "datedesc")
	params.Set("maxrecords", strconv.Itoa(maxRecords))
	params.Set("startdatetime", start.Format(timeLayout))
	params.Set("enddatetime", end.Format(timeLayout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Info().Str("start", start.Format(time.RFC3339)).Str("end", end.Format(time.RFC3339)).
		Str("query", query).Msg("Fetching GDELT articles")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GDELT API error: status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if len(bytes.TrimSpace(body)) == 0 {
		c.logger.Warn().Msg("GDELT returned empty response")
		return nil, nil
	}

	// Query errors come back as 200 with a plain text message
	var payload artlistResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.Error().Err(err).Str("body", truncate(body, 500)).Msg("Failed to parse GDELT response")
		return nil, nil
	}

	items := make([]models.NewsItem, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		title := strings.TrimSpace(a.Title)
		link := strings.TrimSpace(a.URL)
		if title == "" || link == "" {
			continue
		}
		items = append(items, models.NewsItem{
			Title:       title,
			URL:         link,
			Source:      firstNonEmpty(a.Domain, a.SourceCountry, models.Unknown),
			PublishedAt: firstNonEmpty(a.SeenDate, models.Unknown),
		})
	}

	c.logger.Info().Int("articles", len(items)).Msg("Fetched candidate articles")
	return items, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

// Ensure Client implements NewsClient
var _ interfaces.NewsClient = (*Client)(nil)
