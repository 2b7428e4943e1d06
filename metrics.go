package weblytics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jdziat/weblytics-go/pkg/lifecycle"
)

// Metrics receives SDK telemetry. pkg/metrics provides Prometheus and
// OpenTelemetry implementations.
//
// Names emitted by the SDK:
//
//	weblytics.queue.size          gauge, queued events
//	weblytics.queue.evicted       events evicted by a full queue
//	weblytics.batch.sent          batches delivered
//	weblytics.batch.failed        batch sends that failed
//	weblytics.batch.dropped       batches dropped after the last retry or a 4xx
//	weblytics.batch.duration      time per batch send
//	weblytics.events.accepted     events accepted by the API
//	weblytics.retry.scheduled     backoff timers armed
//	weblytics.identify.sent       successful identify calls
//	weblytics.session.started     sessions created or rotated
//	weblytics.http.*              per-request counters from MetricsHook
//	weblytics.errors              async errors passed to the error handler
//	weblytics.circuit.opened      circuit breaker trips
type Metrics interface {
	IncrementCounter(name string, value int64)
	RecordDuration(name string, duration time.Duration)
	SetGauge(name string, value float64)
}

// ClientStats is a snapshot of the client.
type ClientStats struct {
	State       string `json:"state"`
	Initialized bool   `json:"initialized"`
	Buffered    bool   `json:"buffered"`
	Uptime      string `json:"uptime"`

	// Circuit is the circuit breaker state, empty when none is configured.
	Circuit string `json:"circuit,omitempty"`

	Queue QueueStats `json:"queue"`
}

// QueueStats describes the event queue. It is zero on a server.
type QueueStats struct {
	Size            int     `json:"size"`
	Capacity        int     `json:"capacity"`
	Utilization     float64 `json:"utilization"`
	Retries         int     `json:"retries"`
	InFlight        bool    `json:"in_flight"`
	DebouncePending bool    `json:"debounce_pending"`
	BackoffPending  bool    `json:"backoff_pending"`
}

// Stats returns a snapshot of the client. It is safe to call concurrently.
//
//	stats := client.Stats()
//	log.Printf("queue %d/%d, retries %d", stats.Queue.Size, stats.Queue.Capacity, stats.Queue.Retries)
func (c *Client) Stats() ClientStats {
	ls := c.lifecycle.Stats()
	stats := ClientStats{
		State:       ls.State.String(),
		Initialized: c.transport.Configured(),
		Buffered:    c.buffered,
		Uptime:      ls.Uptime.Round(time.Millisecond).String(),
	}
	if c.breaker != nil {
		stats.Circuit = c.breaker.State().String()
	}
	if !c.buffered {
		return stats
	}

	qs := c.strategy.queueStats()
	stats.Queue = QueueStats{
		Size:            qs.Queued,
		Capacity:        c.config.QueueCapacity,
		Retries:         qs.Retries,
		InFlight:        qs.InFlight,
		DebouncePending: qs.DebouncePending,
		BackoffPending:  qs.BackoffPending,
	}
	if c.config.QueueCapacity > 0 {
		stats.Queue.Utilization = float64(qs.Queued) / float64(c.config.QueueCapacity)
	}
	return stats
}

// StatsHandler serves Stats as JSON.
//
//	http.Handle("/debug/weblytics", client.StatsHandler())
func (c *Client) StatsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(c.Stats()); err != nil {
			http.Error(w, "Failed to encode stats", http.StatusInternalServerError)
		}
	})
}

// HealthHandler responds 200 while the client is active and 503 once
// Shutdown has begun.
func (c *Client) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := c.lifecycle.State()
		resp := struct {
			Status string `json:"status"`
			State  string `json:"state"`
		}{Status: "healthy", State: state.String()}

		w.Header().Set("Content-Type", "application/json")
		if state != lifecycle.StateActive {
			resp.Status = "unhealthy"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
}
