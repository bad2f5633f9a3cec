package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the global SugaredLogger instance.
// It stays a no-op logger until Initialize is called, so packages can log from tests safely.
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// New builds a production JSON logger at the given level ("debug", "info", "warn", ...).
func New(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return l.Sugar(), nil
}

// Initialize replaces the global logger with one built by New.
func Initialize(level string) error {
	l, err := New(level)
	if err != nil {
		return err
	}

	Log = l
	return nil
}
