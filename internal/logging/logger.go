// Package logging provides the structured logger used across switchboard.
//
// Records are emitted through log/slog. The level lives in a shared
// slog.LevelVar so it can be changed while the server runs, and output can
// be teed into a size-rotated file.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger interface for structured logging
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})

	With(fields ...interface{}) Logger
	WithComponent(component string) Logger
}

// Config holds logger configuration
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
	File      *FileConfig
}

// FileConfig enables a rotating log file next to the primary output.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ServiceLogger implements Logger on top of slog.
type ServiceLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
	closer io.Closer
}

// ParseLevel maps a configuration string to an slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New creates a logger from cfg. The caller owns Close when a file is configured.
func New(cfg Config) (*ServiceLogger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var closer io.Closer
	if cfg.File != nil && cfg.File.Path != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB, // megabytes
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays, // days
			Compress:   cfg.File.Compress,
		}
		out = io.MultiWriter(out, rotating)
		closer = rotating
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	opts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "", "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return &ServiceLogger{
		logger: slog.New(handler),
		level:  levelVar,
		closer: closer,
	}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *ServiceLogger {
	levelVar := new(slog.LevelVar)
	return &ServiceLogger{
		logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: levelVar})),
		level:  levelVar,
	}
}

// Debug logs a debug message
func (l *ServiceLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelDebug, nil, msg, fields...)
}

// Info logs an info message
func (l *ServiceLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelInfo, nil, msg, fields...)
}

// Warn logs a warning message
func (l *ServiceLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelWarn, err, msg, fields...)
}

// Error logs an error message
func (l *ServiceLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelError, err, msg, fields...)
}

// With creates a new logger with additional fields
func (l *ServiceLogger) With(fields ...interface{}) Logger {
	return &ServiceLogger{
		logger: l.logger.With(fields...),
		level:  l.level,
		closer: l.closer,
	}
}

// WithComponent creates a new logger with component context
func (l *ServiceLogger) WithComponent(component string) Logger {
	return l.With("component", component)
}

// SetLevel changes the level for this logger and every logger derived from it.
func (l *ServiceLogger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Level returns the current minimum level.
func (l *ServiceLogger) Level() slog.Level {
	return l.level.Level()
}

// StdLogger adapts the logger for APIs that want a *log.Logger, such as
// http.Server.ErrorLog.
func (l *ServiceLogger) StdLogger(level slog.Level) *log.Logger {
	return slog.NewLogLogger(l.logger.Handler(), level)
}

// Close releases the rotating file, if any.
func (l *ServiceLogger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func (l *ServiceLogger) log(ctx context.Context, level slog.Level, err error, msg string, fields ...interface{}) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.logger.Enabled(ctx, level) {
		return
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	l.logger.Log(ctx, level, msg, fields...)
}
