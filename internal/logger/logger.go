// Package logger provides structured logging configuration using log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel and EnvLogFormat name the environment variables read by DefaultConfig.
const (
	EnvLogLevel  = "ACESTEP_VIS_LOG_LEVEL"
	EnvLogFormat = "ACESTEP_VIS_LOG_FORMAT"
)

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format string // "text" or "json"

	// Output defaults to os.Stderr so stdout stays free for CLI output
	Output io.Writer
}

// NewLogger creates a configured slog.Logger.
func NewLogger(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.Level <= slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps DEBUG, INFO, WARN, WARNING and ERROR (any case) to a slog level.
// Unknown values return fallback.
func ParseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return fallback
	}
}

// DefaultConfig returns the default logger configuration.
// ACESTEP_VIS_LOG_LEVEL sets the level (default INFO) and ACESTEP_VIS_LOG_FORMAT
// selects "json" output.
func DefaultConfig() Config {
	format := "text"
	if strings.EqualFold(os.Getenv(EnvLogFormat), "json") {
		format = "json"
	}
	return Config{
		Level:  ParseLevel(os.Getenv(EnvLogLevel), slog.LevelInfo),
		Format: format,
	}
}
