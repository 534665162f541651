package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nerrad567/homio-core/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "homio"

// Logger wraps slog.Logger with Homio-specific functionality.
//
// It provides structured logging with default fields and level-based filtering.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New creates a new Logger writing to the output named in cfg.
//
// It configures:
//   - Output format (JSON for production, text for development)
//   - Log level filtering
//   - Default fields (service name, version)
//   - Output destination: stdout, stderr or a file path (appended, 0600)
//
// A file that cannot be opened falls back to stderr and the failure is
// logged as the first entry.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Application version for default field
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	output, err := openOutput(cfg.Output)
	if err != nil {
		l := NewWithWriter(os.Stderr, cfg, version)
		l.Warn("log output unavailable, using stderr", "output", cfg.Output, "error", err)
		return l
	}
	return NewWithWriter(output, cfg, version)
}

// openOutput resolves the logging.output setting.
func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	path := filepath.Clean(output)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// NewWithWriter creates a Logger that writes to w, ignoring cfg.Output.
// Tests use it to capture log output.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: utcTime,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// utcTime renders the record time in UTC so entries from devices in
// different zones line up.
func utcTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.TimeValue(a.Value.Time().UTC())
	}
	return a
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with additional default attributes.
//
// Example:
//
//	ingestLogger := logger.With("component", "ingest")
//	ingestLogger.Info("subscribed") // Includes component=ingest
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Datapoint returns a child logger tagged with a datapoint ID.
func (l *Logger) Datapoint(id string) *Logger {
	return l.With("datapoint_id", id)
}

// Default creates a default logger for use before configuration is loaded.
//
// This logger outputs to stdout in JSON format at info level.
// It should only be used during early startup before config is available.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
