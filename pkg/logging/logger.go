// Package logging configures the zerolog global logger shared by all
// components of the students view.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// Service is added to every entry when set.
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level. Unknown levels fall back to info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Valid reports whether level names a known level.
func (l LogLevel) Valid() bool {
	switch strings.ToLower(strings.TrimSpace(string(l))) {
	case "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache reads (fresh, stale, miss) and store keys
//   - Prefetch scheduling, throttling and swallowed prefetch errors
//   - Upstream request flow and HTTP request logs
//
// Info: Normal operation events
//   - Settled queries
//   - Deleted students and cancelled queries
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Failed, timed out and cancelled page loads
//   - Malformed X-Total-Count headers
//   - Retry attempts
//   - Store errors (results are still returned)
//
// Error: Error conditions requiring attention
//   - Invalid query state transitions
//   - Template rendering failures
//   - Configuration errors
//
// Context Fields:
//   - component: Emitting component (students-client, query-client, web, ...)
//   - key: Query key (e.g., students:page=2)
//   - endpoint: Upstream endpoint pattern
//   - status: HTTP status or query status
//   - duration: Request or call duration
//   - error_class: Error classification (client, server, network, cancelled)
//   - page, id: Page number and student id
