// Package logging owns the process-wide zap logger. Commands initialize it
// once at startup; subsystems take named child loggers (runner, loader,
// store, checkpoint, llm, metrics) so log lines carry their origin.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Init builds the process logger. Verbose enables debug level. Safe to call
// more than once; the last call wins.
func Init(verbose bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

// SetLogger replaces the process logger. Tests use this with zaptest loggers.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// L returns the process logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Named returns a child logger for a subsystem.
func Named(subsystem string) *zap.Logger {
	return L().Named(subsystem)
}

// Sync flushes buffered log entries. Called from the CLI's PersistentPostRun.
func Sync() {
	_ = L().Sync()
}
