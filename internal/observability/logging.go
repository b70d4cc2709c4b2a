package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig selects level and output format
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NewLogger returns a zerolog logger writing to stderr with a component field attached.
func NewLogger(cfg LogConfig, component string) zerolog.Logger {
	return newLogger(os.Stderr, cfg, component)
}

func newLogger(w io.Writer, cfg LogConfig, component string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if !strings.EqualFold(cfg.Format, "json") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if component != "" {
		logger = logger.With().Str("component", component).Logger()
	}
	return logger
}

// WithSession tags a logger with the remote session id
func WithSession(logger zerolog.Logger, sessionID string) zerolog.Logger {
	if sessionID == "" {
		return logger
	}
	return logger.With().Str("session_id", sessionID).Logger()
}

// WithBuild tags a logger with the build id
func WithBuild(logger zerolog.Logger, buildID string) zerolog.Logger {
	if buildID == "" {
		return logger
	}
	return logger.With().Str("build_id", buildID).Logger()
}
