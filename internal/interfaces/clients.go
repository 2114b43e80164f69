// Package interfaces defines service contracts for vire-digest
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/vire-digest/internal/models"
)

// QuoteSource returns the most recent close for one instrument.
// Implementations identify instruments by a market field so each source can
// map it to its own symbol.
type QuoteSource interface {
	// Name identifies the source in logs ("yahoo", "eodhd")
	Name() string

	// GetLatestClose retrieves the latest closing value for a market field
	GetLatestClose(ctx context.Context, field models.MarketField) (*models.RealTimeQuote, error)
}

// NewsClient retrieves candidate news articles
type NewsClient interface {
	// FetchRecent retrieves articles matching query published within the window ending now
	FetchRecent(ctx context.Context, query string, window time.Duration, maxRecords int) ([]models.NewsItem, error)
}

// DigestGenerator produces digest markdown from candidate news
type DigestGenerator interface {
	// GenerateDigest renders the prompt and news context into a digest
	GenerateDigest(ctx context.Context, prompt string, news []models.NewsItem) (string, error)
}

// ChatSender posts digest text to a chat channel
type ChatSender interface {
	// Send posts text, split into chunks, returning the number of chunks sent
	Send(ctx context.Context, text string) (int, error)
}

// DocumentWriter creates a structured page in a document store
type DocumentWriter interface {
	// CreatePage writes blocks and properties as one page, returning the page id
	CreatePage(ctx context.Context, digest *models.Digest) (string, error)
}
