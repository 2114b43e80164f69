package common

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewLogger_FileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "digest.log")

	logger := NewLogger(LoggingConfig{Level: "debug", Outputs: []string{"file", "console"}, FilePath: path})
	if logger == nil {
		t.Fatal("expected logger")
	}
	logger.Info().Str("component", "test").Msg("logger ready")

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("expected log directory to be created: %v", err)
	}
}

func TestNewLogger_Defaults(t *testing.T) {
	if NewLogger(LoggingConfig{}) == nil {
		t.Error("expected console logger for empty config")
	}
	if NewSilentLogger() == nil {
		t.Error("expected silent logger")
	}
}
