package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nerrad567/lightsync/internal/infrastructure/config"
)

const (
	// logDirPermissions is the permission mode for the log file directory.
	logDirPermissions = 0750

	// logFilePermissions is the permission mode for the log file.
	logFilePermissions = 0600
)

// Logger wraps slog.Logger with lightsync-specific functionality.
//
// It provides structured logging with default fields, level-based filtering
// and an optional persistent log file written alongside the console stream.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger

	// file is the persistent log file, nil when disabled.
	file io.Closer
}

// New creates a new Logger with the specified configuration.
//
// It configures:
//   - Output format (JSON or text)
//   - Log level filtering
//   - Default fields (service name, version)
//   - Output destination, teed into the log file when one is configured
//
// If the log file cannot be opened the logger falls back to console output
// and reports the problem as its first entry.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Application version for default field
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	case "discard":
		output = io.Discard
	default:
		output = os.Stdout
	}

	var file *os.File
	var fileErr error
	if cfg.File.Path != "" {
		file, fileErr = openLogFile(cfg.File.Path)
		if fileErr == nil {
			output = io.MultiWriter(output, file)
		}
	}

	l := &Logger{
		Logger: slog.New(newHandler(output, cfg, version)),
	}
	if file != nil {
		l.file = file
	}

	if fileErr != nil {
		l.Warn("log file unavailable, logging to console only",
			"path", cfg.File.Path,
			"error", fileErr,
		)
	}

	return l
}

// newHandler builds the slog handler for the given writer.
func newHandler(w io.Writer, cfg config.LoggingConfig, version string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return handler.WithAttrs([]slog.Attr{
		slog.String("service", "lightsync"),
		slog.String("version", version),
	})
}

// openLogFile opens (creating if needed) the persistent log file in append mode.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), logDirPermissions); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
// The child shares the parent's log file; only the parent closes it.
//
// Example:
//
//	wizLogger := logger.With("component", "wiz")
//	wizLogger.Info("discovery complete") // Includes component=wiz
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Close closes the persistent log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}

// Default creates a default logger for use before configuration is loaded.
//
// This logger outputs text to stdout at info level and does not write a file.
// It should only be used during early startup before config is available.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "stdout",
	}, "dev")
}
