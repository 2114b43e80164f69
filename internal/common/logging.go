package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// NewLogger creates an arbor logger from the logging configuration.
// Console output is the default when no outputs are configured.
func NewLogger(cfg LoggingConfig) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFile, hasConsole := false, len(cfg.Outputs) == 0
	for _, output := range cfg.Outputs {
		switch output {
		case "file":
			hasFile = cfg.FilePath != ""
		case "console", "stdout":
			hasConsole = true
		}
	}

	if hasFile {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to create log directory: %v\n", err)
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   cfg.FilePath,
				TimeFormat: "15:04:05",
				MaxSize:    50 * 1024 * 1024,
				MaxBackups: 3,
				OutputType: models.OutputFormatLogfmt,
			})
		}
	}

	if hasConsole {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: "15:04:05",
			OutputType: models.OutputFormatLogfmt,
		})
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	return logger.WithLevelFromString(level)
}

// NewDefaultLogger creates a console logger at info level
func NewDefaultLogger() arbor.ILogger {
	return NewLogger(LoggingConfig{Level: "info", Outputs: []string{"console"}})
}

// NewSilentLogger creates a logger without writers, discarding all output
func NewSilentLogger() arbor.ILogger {
	return arbor.NewLogger()
}
