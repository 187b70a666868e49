// Package hooks provides production-ready Hook, Logger, and
// MetricsCollector implementations.
package hooks

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kolbrek/fish/core"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

// NewDefaultLogger builds a text-handler SlogLogger writing to stderr,
// filtered to level (one of "debug", "info", "warn", "error"; anything
// else falls back to "info"), matching config.Config.LogLevel.
func NewDefaultLogger(level string) *SlogLogger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(level)})
	return NewSlogLogger(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (s *SlogLogger) Debug(msg string, fields ...interface{}) {
	s.log.Debug(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Info(msg string, fields ...interface{}) {
	s.log.Info(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Warn(msg string, fields ...interface{}) {
	s.log.Warn(msg, toAttrs(fields)...)
}
func (s *SlogLogger) Error(msg string, fields ...interface{}) {
	s.log.Error(msg, toAttrs(fields)...)
}

func toAttrs(fields []interface{}) []any { return fields }

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each conversion run through
// fish.Context.Convert; Process calls do not invoke hooks.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeConvert(op string, src, dst *core.Format) {
	h.logger.Debug("convert.start",
		"op", op,
		"src", src.Name(),
		"dst", dst.Name(),
	)
}

func (h *LoggingHook) AfterConvert(op string, src, dst *core.Format, d time.Duration, n int, err error) {
	if err != nil {
		h.logger.Error("convert.error",
			"op", op,
			"src", src.Name(),
			"dst", dst.Name(),
			"duration_us", d.Microseconds(),
			"error", err.Error(),
		)
		return
	}
	h.logger.Debug("convert.done",
		"op", op,
		"src", src.Name(),
		"dst", dst.Name(),
		"duration_us", d.Microseconds(),
		"pixels", n,
		"throughput", fmt.Sprintf("%.0f px/s", float64(n)/max(d.Seconds(), 1e-9)),
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates metrics; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	opDurationsUs map[string]int64 // cumulative microseconds per op
	opCalls       map[string]int64
	opErrors      map[string]int64

	totalPixels int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		opDurationsUs: make(map[string]int64),
		opCalls:       make(map[string]int64),
		opErrors:      make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordConversionTime(op string, d interface{ Seconds() float64 }) {
	us := int64(d.Seconds() * 1e6)
	m.mu.Lock()
	m.opDurationsUs[op] += us
	m.opCalls[op]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordPixels(n int64) {
	atomic.AddInt64(&m.totalPixels, n)
}

func (m *InMemoryMetrics) RecordError(op string, _ string) {
	m.mu.Lock()
	m.opErrors[op]++
	m.mu.Unlock()
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		OpDurationsUs: make(map[string]int64, len(m.opDurationsUs)),
		OpCalls:       make(map[string]int64, len(m.opCalls)),
		OpErrors:      make(map[string]int64, len(m.opErrors)),
		TotalPixels:   atomic.LoadInt64(&m.totalPixels),
	}
	for k, v := range m.opDurationsUs {
		snap.OpDurationsUs[k] = v
	}
	for k, v := range m.opCalls {
		snap.OpCalls[k] = v
	}
	for k, v := range m.opErrors {
		snap.OpErrors[k] = v
	}
	return snap
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	OpDurationsUs map[string]int64
	OpCalls       map[string]int64
	OpErrors      map[string]int64
	TotalPixels   int64
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds conversion events into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeConvert(_ string, _, _ *core.Format) {}

func (h *MetricsHook) AfterConvert(op string, _, _ *core.Format, d time.Duration, n int, err error) {
	h.collector.RecordConversionTime(op, d)
	if err != nil {
		h.collector.RecordError(op, "execution")
		return
	}
	h.collector.RecordPixels(int64(n))
}
