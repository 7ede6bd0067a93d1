package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/runger/worklog/internal/config"
	"github.com/runger/worklog/internal/ingest"
	"github.com/runger/worklog/internal/sanitize"
	"github.com/runger/worklog/internal/storage"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// buildLogger creates the shared slog logger. With log.file set, output
// goes to that file and the file stays open for the process lifetime.
func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Log.Level)}

	out := os.Stderr
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	}

	return slog.New(slog.NewTextHandler(out, opts)), nil
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	store, err := storage.NewSQLiteStore(cfg.DBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// newFilter compiles the privacy filter, layering configured patterns on
// top of the built-ins. A pattern that does not compile is skipped with
// a warning; the built-ins always apply.
func newFilter(cfg *config.Config, logger *slog.Logger) *sanitize.Filter {
	var custom []sanitize.Pattern
	for _, raw := range cfg.Privacy.SensitivePatterns {
		p, err := sanitize.CompileCustom(raw)
		if err != nil {
			logger.Warn("skipping invalid sensitive pattern", "pattern", raw, "error", err)
			continue
		}
		custom = append(custom, p)
	}
	return sanitize.NewFilter(custom...)
}

func newResolver(cfg *config.Config) *ingest.Resolver {
	return ingest.NewResolver(cfg.Tracking.WatchRoots)
}
