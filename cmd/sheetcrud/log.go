package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// setupLog builds the logger from the log section. While the TUI owns the
// terminal, output goes to the log file or nowhere.
func setupLog(cfg logConfig, stderr io.Writer, tui bool) (*log.Logger, func() error, error) {
	level := log.InfoLevel
	if cfg.Level != "" {
		l, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	out := stderr
	closer := func() error { return nil }
	switch {
	case cfg.File != "":
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("unable to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open log file: %w", err)
		}
		out = f
		closer = f.Close
	case tui:
		out = io.Discard
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: cfg.File != "",
		Prefix:          "sheetcrud",
	})
	return logger, closer, nil
}
