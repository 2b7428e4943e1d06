package metrics

import "time"

// Nop discards every measurement.
type Nop struct{}

// IncrementCounter implements the Metrics interface.
func (Nop) IncrementCounter(string, int64) {}

// RecordDuration implements the Metrics interface.
func (Nop) RecordDuration(string, time.Duration) {}

// SetGauge implements the Metrics interface.
func (Nop) SetGauge(string, float64) {}
