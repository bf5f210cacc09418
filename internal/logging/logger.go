// Package logging provides the leveled, printf-style logger used across
// retempo. It is a thin facade over zerolog: a colored console writer on
// stderr plus an optional JSON log file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/backmassage/retempo/internal/config"
	"github.com/backmassage/retempo/internal/term"
)

// Logger provides leveled, optionally colored logging with optional file
// sink. It is safe for concurrent use by pipeline workers.
type Logger struct {
	zl zerolog.Logger

	mu   *sync.Mutex
	file *os.File
}

// NewLogger configures terminal colors from cfg, writes to stderr, and
// optionally appends JSON lines to cfg.LogFile. Call Close() when done if
// LogFile was set.
func NewLogger(cfg *config.Config) (*Logger, error) {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter is NewLogger with the console output redirected to w.
func NewWithWriter(w io.Writer, cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)

	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !term.Enabled(),
		TimeFormat: time.DateTime,
	}
	writers := []io.Writer{console}

	l := &Logger{mu: &sync.Mutex{}}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		writers = append(writers, f)
	}

	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}

	out := zerolog.SyncWriter(zerolog.MultiLevelWriter(writers...))
	l.zl = zerolog.New(out).Level(level).With().Timestamp().Str("run", cfg.RunID).Logger()
	return l, nil
}

// Nop returns a Logger that discards everything. Useful in tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop(), mu: &sync.Mutex{}}
}

// With returns a child logger that tags every entry with key=value. The
// child shares the parent's file sink; only the parent should be closed.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger(), mu: l.mu}
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// DebugEnabled reports whether Debug output is emitted, so callers can skip
// building expensive messages.
func (l *Logger) DebugEnabled() bool {
	return l.zl.GetLevel() <= zerolog.DebugLevel
}

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

// Success logs at INFO level with a result=ok field.
func (l *Logger) Success(format string, args ...interface{}) {
	l.zl.Info().Str("result", "ok").Msgf(format, args...)
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

// Error logs at ERROR level.
func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// Debug logs at DEBUG level; a no-op unless the logger was built with Verbose.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}
