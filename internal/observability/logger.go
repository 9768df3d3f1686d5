package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// EnforcerIdentity carries the hybrid-store identifiers every quota
// enforcer log line is tagged with, so
// a fleet of enforcers (one per store) can be told apart in aggregated
// logs without grepping process args.
type EnforcerIdentity struct {
	StoreName    string
	VersionTopic string
}

// NewLogger creates a new structured logger based on configuration,
// pre-tagged with the store and version topic this enforcer instance
// watches.
func NewLogger(config LoggingConfig, identity EnforcerIdentity) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(config.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var output io.Writer
	switch strings.ToLower(config.Output) {
	case "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		output = os.Stdout
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch strings.ToLower(config.Format) {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	logger := slog.New(handler)
	if identity.StoreName != "" {
		logger = logger.With("store", identity.StoreName)
	}
	if identity.VersionTopic != "" {
		logger = logger.With("version_topic", identity.VersionTopic)
	}
	return logger
}
