// Package logging provides category-scoped structured logging for the
// auditor. Every component logs through a small accessor instead of
// grabbing a global logger directly, so tests can swap in a no-op
// logger without touching call sites.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	base *zap.Logger
)

func init() {
	base = zap.NewNop()
}

// Configure installs the process-wide base logger. Call once at startup;
// safe to call again in tests to swap loggers between cases.
func Configure(debug bool) error {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	mu.Lock()
	base = l
	mu.Unlock()
	return nil
}

// UseNop installs a no-op logger; useful in unit tests.
func UseNop() {
	mu.Lock()
	base = zap.NewNop()
	mu.Unlock()
}

func get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = get().Sync()
}

func named(category string) *zap.SugaredLogger {
	return get().Named(category).Sugar()
}

// Engine returns the logger for the rule-catalog/engine driver (C1, C6).
func Engine() *zap.SugaredLogger { return named("engine") }

// Scanner returns the logger for the filesystem scanner (C2).
func Scanner() *zap.SugaredLogger { return named("scanner") }

// Checks returns the logger for check executors (C5).
func Checks() *zap.SugaredLogger { return named("checks") }

// Store returns the logger for the scan store (C8).
func Store() *zap.SugaredLogger { return named("store") }

// Progress returns the logger for the progress broadcaster (C9).
func Progress() *zap.SugaredLogger { return named("progress") }

// Orchestrator returns the logger for the scan orchestrator (C10).
func Orchestrator() *zap.SugaredLogger { return named("orchestrator") }

// HTTP returns the logger for the HTTP/WebSocket surface (C11).
func HTTP() *zap.SugaredLogger { return named("http") }

// Kafka returns the logger for the Kafka sink (C12).
func Kafka() *zap.SugaredLogger { return named("kafka") }
