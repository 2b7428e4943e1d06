package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// OTel records SDK metrics as OpenTelemetry instruments.
//
// Counters are Int64Counters, durations are Float64Histograms in
// milliseconds and gauges are Float64Gauges. Instrument names keep the SDK's
// dotted form.
type OTel struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64Gauge
}

// NewOTel returns an adapter creating instruments from meter.
func NewOTel(meter metric.Meter) *OTel {
	return &OTel{
		meter:      meter,
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

// IncrementCounter adds value to the counter name.
func (o *OTel) IncrementCounter(name string, value int64) {
	o.mu.Lock()
	c, ok := o.counters[name]
	if !ok {
		var err error
		c, err = o.meter.Int64Counter(name, metric.WithDescription("Weblytics SDK counter "+name))
		if err != nil {
			o.mu.Unlock()
			slog.Warn("weblytics: failed to create counter", "name", name, "error", err)
			return
		}
		o.counters[name] = c
	}
	o.mu.Unlock()
	c.Add(context.Background(), value)
}

// RecordDuration records d in milliseconds.
func (o *OTel) RecordDuration(name string, d time.Duration) {
	o.mu.Lock()
	h, ok := o.histograms[name]
	if !ok {
		var err error
		h, err = o.meter.Float64Histogram(name,
			metric.WithDescription("Weblytics SDK duration "+name),
			metric.WithUnit("ms"),
		)
		if err != nil {
			o.mu.Unlock()
			slog.Warn("weblytics: failed to create histogram", "name", name, "error", err)
			return
		}
		o.histograms[name] = h
	}
	o.mu.Unlock()
	h.Record(context.Background(), float64(d)/float64(time.Millisecond))
}

// SetGauge records value for the gauge name.
func (o *OTel) SetGauge(name string, value float64) {
	o.mu.Lock()
	g, ok := o.gauges[name]
	if !ok {
		var err error
		g, err = o.meter.Float64Gauge(name, metric.WithDescription("Weblytics SDK gauge "+name))
		if err != nil {
			o.mu.Unlock()
			slog.Warn("weblytics: failed to create gauge", "name", name, "error", err)
			return
		}
		o.gauges[name] = g
	}
	o.mu.Unlock()
	g.Record(context.Background(), value)
}
