package log

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging surface used across routedoc packages.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

var (
	once       sync.Once
	shared     *zap.SugaredLogger
	syncLogger = func() error { return nil }
)

// Shared returns a lazily initialised process-wide logger at info level.
func Shared() *zap.SugaredLogger {
	once.Do(func() {
		base, err := productionConfig(zapcore.InfoLevel).Build()
		if err != nil {
			panic(err)
		}
		shared = base.Sugar()
		syncLogger = base.Sync
	})

	return shared
}

// New builds a standalone logger at the given level ("debug", "info",
// "warn", "error"). An empty level means info.
func New(level string) (*zap.SugaredLogger, error) {
	lvl := zapcore.InfoLevel
	if trimmed := strings.TrimSpace(level); trimmed != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(trimmed))); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
	}

	base, err := productionConfig(lvl).Build()
	if err != nil {
		return nil, err
	}
	return base.Sugar(), nil
}

// NewNop returns a logger that discards everything.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// Sync flushes any buffered log entries of the shared logger.
func Sync() error {
	if err := syncLogger(); err != nil {
		if strings.Contains(err.Error(), "bad file descriptor") || strings.Contains(err.Error(), "invalid argument") {
			return nil
		}
		return err
	}
	return nil
}

func productionConfig(level zapcore.Level) zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
