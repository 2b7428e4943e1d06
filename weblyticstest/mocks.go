package weblyticstest

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jdziat/weblytics-go"
)

var (
	_ weblytics.Metrics          = (*MockMetrics)(nil)
	_ weblytics.StructuredLogger = (*MockLogger)(nil)
	_ weblytics.Logger           = (*MockLogger)(nil)
)

// MockMetrics records every measurement.
type MockMetrics struct {
	mu       sync.Mutex
	Counters map[string]int64
	Gauges   map[string]float64
	Timings  map[string][]time.Duration
}

// NewMockMetrics returns an empty recorder.
func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Counters: make(map[string]int64),
		Gauges:   make(map[string]float64),
		Timings:  make(map[string][]time.Duration),
	}
}

// IncrementCounter implements weblytics.Metrics.
func (m *MockMetrics) IncrementCounter(name string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Counters[name] += value
}

// RecordDuration implements weblytics.Metrics.
func (m *MockMetrics) RecordDuration(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Timings[name] = append(m.Timings[name], d)
}

// SetGauge implements weblytics.Metrics.
func (m *MockMetrics) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gauges[name] = value
}

// GetCounter returns a counter's value.
func (m *MockMetrics) GetCounter(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Counters[name]
}

// GetGauge returns a gauge's value.
func (m *MockMetrics) GetGauge(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Gauges[name]
}

// GetTimings returns the durations recorded under name.
func (m *MockMetrics) GetTimings(name string) []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.Timings[name]...)
}

// LogEntry is one captured log record.
type LogEntry struct {
	Level   string
	Message string
	Args    []any
}

// MockLogger captures log records. It implements both logger interfaces.
type MockLogger struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewMockLogger returns an empty logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (l *MockLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Message: msg, Args: args})
}

// Debug implements weblytics.StructuredLogger.
func (l *MockLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }

// Info implements weblytics.StructuredLogger.
func (l *MockLogger) Info(msg string, args ...any) { l.log("info", msg, args) }

// Warn implements weblytics.StructuredLogger.
func (l *MockLogger) Warn(msg string, args ...any) { l.log("warn", msg, args) }

// Error implements weblytics.StructuredLogger.
func (l *MockLogger) Error(msg string, args ...any) { l.log("error", msg, args) }

// Printf implements weblytics.Logger.
func (l *MockLogger) Printf(format string, v ...any) { l.log("info", fmt.Sprintf(format, v...), nil) }

// Entries returns every captured record.
func (l *MockLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

// Count returns the number of records at level; "" counts all.
func (l *MockLogger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			n++
		}
	}
	return n
}

// Contains reports whether any record at level contains substr.
func (l *MockLogger) Contains(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if (level == "" || e.Level == level) && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Reset discards captured records.
func (l *MockLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
