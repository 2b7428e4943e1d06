package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DurationBuckets are the histogram buckets, in seconds, used for durations.
var DurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Prometheus records SDK metrics as Prometheus collectors.
//
// Dotted names become underscored metric names. Counters get a _total
// suffix and durations are observed in seconds with a _seconds suffix, so
// "weblytics.batch.duration" is exported as weblytics_batch_duration_seconds.
type Prometheus struct {
	reg prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// NewPrometheus returns an adapter registering collectors with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Prometheus{
		reg:        reg,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// IncrementCounter adds value to the counter name. Negative values are ignored.
func (p *Prometheus) IncrementCounter(name string, value int64) {
	if value < 0 {
		return
	}
	p.mu.Lock()
	c, ok := p.counters[name]
	if !ok {
		c = register(p.reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: PrometheusName(name) + "_total",
			Help: "Weblytics SDK counter " + name + ".",
		}))
		p.counters[name] = c
	}
	p.mu.Unlock()
	c.Add(float64(value))
}

// RecordDuration observes d in the histogram name.
func (p *Prometheus) RecordDuration(name string, d time.Duration) {
	p.mu.Lock()
	h, ok := p.histograms[name]
	if !ok {
		h = register(p.reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    PrometheusName(name) + "_seconds",
			Help:    "Weblytics SDK duration " + name + ".",
			Buckets: DurationBuckets,
		}))
		p.histograms[name] = h
	}
	p.mu.Unlock()
	h.Observe(d.Seconds())
}

// SetGauge sets the gauge name to value.
func (p *Prometheus) SetGauge(name string, value float64) {
	p.mu.Lock()
	g, ok := p.gauges[name]
	if !ok {
		g = register(p.reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: PrometheusName(name),
			Help: "Weblytics SDK gauge " + name + ".",
		}))
		p.gauges[name] = g
	}
	p.mu.Unlock()
	g.Set(value)
}

// register registers c, reusing an identical collector that is already
// registered. Any other registration failure leaves c unregistered but
// still usable.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

// PrometheusName converts a dotted SDK metric name into a valid Prometheus
// metric name.
func PrometheusName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
