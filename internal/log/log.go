package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Logger is the structured logger handed to every component. Call sites
// pass a message followed by key/value pairs:
//
//	logger.Info("csv load completed", "path", path, "rows", n)
//	logger.Error("notion push failed", err, "page", id)
type Logger struct {
	s *zap.SugaredLogger
}

// Options configures New. An empty Output writes to stderr.
type Options struct {
	Level  Level
	Output string
	JSON   bool
}

// New builds a zap-backed logger.
func New(opts Options) (*Logger, error) {
	var zc zap.Config
	if opts.JSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}

	lvl := opts.Level
	if lvl == "" {
		lvl = LevelInfo
	}
	zl, err := zapcore.ParseLevel(string(lvl))
	if err != nil {
		return nil, fmt.Errorf("log: invalid level %q: %w", lvl, err)
	}
	zc.Level = zap.NewAtomicLevelAt(zl)

	if opts.Output != "" {
		zc.OutputPaths = []string{opts.Output}
		zc.ErrorOutputPaths = []string{opts.Output}
	} else {
		zc.OutputPaths = []string{"stderr"}
		zc.ErrorOutputPaths = []string{"stderr"}
	}

	z, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("log: build: %w", err)
	}
	return &Logger{s: z.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{s: z.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.sugar().Debugw(msg, kv...)
}

func (l *Logger) Info(msg string, kv ...any) {
	l.sugar().Infow(msg, kv...)
}

func (l *Logger) Warn(msg string, kv ...any) {
	l.sugar().Warnw(msg, kv...)
}

func (l *Logger) Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	l.sugar().Errorw(msg, extended...)
}

// With returns a child logger that always carries the given pairs.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{s: l.sugar().With(kv...)}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar().Sync()
}

// sugar tolerates a nil receiver so optional loggers never panic.
func (l *Logger) sugar() *zap.SugaredLogger {
	if l == nil || l.s == nil {
		return zap.NewNop().Sugar()
	}
	return l.s
}
