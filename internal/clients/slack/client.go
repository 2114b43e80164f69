// Package slack posts digest text to a Slack incoming webhook
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/bobmcallan/vire-digest/internal/common"
	"github.com/bobmcallan/vire-digest/internal/interfaces"
)

const (
	DefaultChunkSize = 3500
	DefaultTimeout   = 20 * time.Second
)

// Client implements ChatSender for one webhook
type Client struct {
	webhookURL string
	chunkSize  int
	httpClient *http.Client
	logger     arbor.ILogger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithChunkSize sets the maximum characters per message
func WithChunkSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.chunkSize = size
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

// NewClient creates a webhook client
func NewClient(webhookURL string, opts ...ClientOption) *Client {
	c := &Client{
		webhookURL: webhookURL,
		chunkSize:  DefaultChunkSize,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Send posts text in chunks, stopping at the first failed chunk
func (c *Client) Send(ctx context.Context, text string) (int, error) {
	sent := 0
	for i, chunk := range SplitForSlack(text, c.chunkSize) {
		if err := c.post(ctx, chunk); err != nil {
			return sent, fmt.Errorf("slack chunk %d: %w", i+1, err)
		}
		sent++
		c.logger.Info().Int("chunk", i+1).Msg("Sent Slack chunk")
	}
	return sent, nil
}

func (c *Client) post(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// SplitForSlack splits text into chunks of at most chunkSize characters,
// cutting at the last newline before the limit when there is one.
// Chunks are trimmed and blank chunks are dropped.
func SplitForSlack(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var chunks []string
	remaining := text
	for utf8.RuneCountInString(remaining) > chunkSize {
		limit := byteOffset(remaining, chunkSize)
		cut := strings.LastIndex(remaining[:limit], "\n")
		if cut <= 0 {
			cut = limit
		}
		if chunk := strings.TrimSpace(remaining[:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = strings.TrimSpace(remaining[cut:])
	}
	if remaining = strings.TrimSpace(remaining); remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}

// byteOffset returns the byte index of the n-th rune of s
func byteOffset(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}

// Ensure Client implements ChatSender
var _ interfaces.ChatSender = (*Client)(nil)
