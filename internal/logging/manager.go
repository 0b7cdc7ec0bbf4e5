// pattern: Imperative Shell

package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds configuration for the Manager.
type Config struct {
	FilePath       string // Path to the rotated JSON log file
	MaxSizeMB      int    // Max size in MB before rotation
	MaxBackups     int    // Max number of rotated files to keep
	MaxAgeDays     int    // Max days to keep rotated files
	Level          string // Minimum level (debug, info, warn, error)
	ChannelBufSize int    // Buffer size for the entry channel (default 256)
}

// LoggerProvider hands out scoped loggers.
// Both Manager and TestLogManager implement it.
type LoggerProvider interface {
	For(scope string) *ScopedLogger
}

// ScopedLogger is a slog facade bound to one named zap logger.
// A nil-backed ScopedLogger (see NopLogger) drops everything.
type ScopedLogger struct {
	slog  *slog.Logger
	scope string
}

func (l *ScopedLogger) Debug(msg string, args ...any) {
	if l != nil && l.slog != nil {
		l.slog.Debug(msg, args...)
	}
}

func (l *ScopedLogger) Info(msg string, args ...any) {
	if l != nil && l.slog != nil {
		l.slog.Info(msg, args...)
	}
}

func (l *ScopedLogger) Warn(msg string, args ...any) {
	if l != nil && l.slog != nil {
		l.slog.Warn(msg, args...)
	}
}

func (l *ScopedLogger) Error(msg string, args ...any) {
	if l != nil && l.slog != nil {
		l.slog.Error(msg, args...)
	}
}

// With returns a logger that adds args to every entry.
func (l *ScopedLogger) With(args ...any) *ScopedLogger {
	if l == nil || l.slog == nil {
		return l
	}
	return &ScopedLogger{slog: l.slog.With(args...), scope: l.scope}
}

// Scope returns the logger's dotted scope, e.g. "project.create".
func (l *ScopedLogger) Scope() string {
	if l == nil {
		return ""
	}
	return l.scope
}

// NopLogger returns a logger that discards all output.
func NopLogger() *ScopedLogger {
	return &ScopedLogger{}
}

// Manager owns the zap core shared by every scoped logger. Entries go to a
// rotated JSON file and to a channel the TUI drains for its status line.
type Manager struct {
	registry
	fileWriter *lumberjack.Logger
	feed       *entryFeed
}

// NewManager creates a Manager writing to cfg.FilePath.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("log file path is required")
	}
	if cfg.ChannelBufSize == 0 {
		cfg.ChannelBufSize = 256
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 5
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = 14
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	feed := newEntryFeed(cfg.ChannelBufSize)

	encoder := zapcore.NewJSONEncoder(encoderConfig())
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(fileWriter), level),
		zapcore.NewCore(encoder.Clone(), zapcore.AddSync(feed), level),
	)

	return &Manager{
		registry:   newRegistry(zap.New(core), level),
		fileWriter: fileWriter,
		feed:       feed,
	}, nil
}

// Entries returns the channel of parsed entries.
func (m *Manager) Entries() <-chan LogEntry {
	return m.feed.Entries()
}

// Sync flushes buffered output.
func (m *Manager) Sync() error {
	return m.base.Sync()
}

// Close flushes and releases the file and channel.
func (m *Manager) Close() error {
	_ = m.Sync()
	_ = m.feed.Close()
	return m.fileWriter.Close()
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.EpochTimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}

// registry caches one ScopedLogger per scope on top of a base zap logger.
type registry struct {
	base    *zap.Logger
	level   zapcore.Level
	mu      sync.RWMutex
	loggers map[string]*ScopedLogger
}

func newRegistry(base *zap.Logger, level zapcore.Level) registry {
	return registry{
		base:    base,
		level:   level,
		loggers: make(map[string]*ScopedLogger),
	}
}

// For returns the cached logger for scope, creating it on first use.
func (r *registry) For(scope string) *ScopedLogger {
	r.mu.RLock()
	logger, ok := r.loggers[scope]
	r.mu.RUnlock()
	if ok {
		return logger
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if logger, ok := r.loggers[scope]; ok {
		return logger
	}

	named := r.base.Named(scope)
	logger = &ScopedLogger{
		slog:  slog.New(&zapHandler{zap: named, level: r.level}),
		scope: scope,
	}
	r.loggers[scope] = logger
	return logger
}
