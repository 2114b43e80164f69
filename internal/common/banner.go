package common

import (
	"fmt"
	"io"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner writes the startup banner for a pipeline run.
func PrintBanner(w io.Writer, config *Config, logger arbor.ILogger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 60) + banner.ColorReset

	fmt.Fprintf(w, "\n%s\n\n", hr)
	fmt.Fprintf(w, "%s  VIRE DIGEST%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(w, "%s  Pre-market news digest, parsing & delivery%s\n\n", textColor, banner.ColorReset)
	fmt.Fprintf(w, "%s\n\n", hr)

	kvLines := [][2]string{
		{"Version", Version},
		{"Commit", GitCommit},
		{"Environment", config.Environment},
		{"Profile", config.Profile},
		{"Model", config.Clients.Gemini.Model},
		{"Report dir", config.Report.Dir},
	}
	for _, kv := range kvLines {
		fmt.Fprintf(w, "%s  %-14s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
	}
	fmt.Fprintf(w, "\n%s\n\n", hr)

	logger.Info().
		Str("version", Version).
		Str("commit", GitCommit).
		Str("environment", config.Environment).
		Str("profile", config.Profile).
		Msg("Digest run started")
}
