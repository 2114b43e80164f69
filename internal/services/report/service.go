// Package report persists run reports as JSON and markdown
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/bobmcallan/vire-digest/internal/common"
	"github.com/bobmcallan/vire-digest/internal/interfaces"
	"github.com/bobmcallan/vire-digest/internal/models"
)

// FilePrefix names every report file
const FilePrefix = "delivery-report-"

// Service implements ReportService, writing into one directory
type Service struct {
	dir    string
	logger arbor.ILogger
}

// NewService creates a report service writing to dir
func NewService(dir string, logger arbor.ILogger) *Service {
	if dir == "" {
		dir = "artifacts"
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{dir: dir, logger: logger}
}

// NewRunID returns the configured run id, or a generated local one
func NewRunID(configured string) string {
	if id := strings.TrimSpace(configured); id != "" {
		return id
	}
	return "local-" + uuid.NewString()[:8]
}

// WriteRunReport writes delivery-report-<run_id>.json and .md
func (s *Service) WriteRunReport(report *models.RunReport) (string, string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create report dir: %w", err)
	}

	base := filepath.Join(s.dir, FilePrefix+sanitizeID(report.RunID))
	jsonPath, mdPath := base+".json", base+".md"

	if err := writeJSON(jsonPath, report); err != nil {
		return "", "", err
	}

	f, err := os.Create(mdPath)
	if err != nil {
		return jsonPath, "", fmt.Errorf("failed to create %s: %w", mdPath, err)
	}
	defer f.Close()

	if err := writeMarkdown(f, report); err != nil {
		return jsonPath, "", fmt.Errorf("failed to write %s: %w", mdPath, err)
	}

	s.logger.Info().Str("json", jsonPath).Str("markdown", mdPath).Msg("Wrote run reports")
	return jsonPath, mdPath, nil
}

func writeJSON(path string, report *models.RunReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// sanitizeID keeps run ids usable as file names
func sanitizeID(id string) string {
	id = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, strings.TrimSpace(id))
	if id == "" || id == "." || id == ".." {
		return "unknown"
	}
	return id
}

// Ensure Service implements ReportService
var _ interfaces.ReportService = (*Service)(nil)
