package interfaces

import (
	"context"

	"github.com/bobmcallan/vire-digest/internal/models"
)

// BackfillService fills market properties the extractor could not find
type BackfillService interface {
	// Backfill returns props with every still-default market field filled
	// from quote sources where possible. It never fails.
	Backfill(ctx context.Context, props models.DigestProperties) models.DigestProperties
}

// MailService sends the digest by email
type MailService interface {
	// Enabled reports whether SMTP delivery is fully configured
	Enabled() bool

	// SendDigest renders the markdown to HTML and sends it, returning the recipient count
	SendDigest(ctx context.Context, markdown string) (int, error)
}

// ReportService persists run reports
type ReportService interface {
	// WriteRunReport writes the JSON and markdown run reports, returning their paths
	WriteRunReport(report *models.RunReport) (jsonPath, mdPath string, err error)
}
