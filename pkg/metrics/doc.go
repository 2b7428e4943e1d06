// Package metrics adapts the SDK's Metrics interface to Prometheus and
// OpenTelemetry.
//
// The SDK reports metrics by dotted name ("weblytics.batch.sent") through
// three calls: IncrementCounter, RecordDuration and SetGauge. Each adapter
// creates the backing instrument the first time a name is seen and reuses it
// afterwards, so callers never register instruments up front.
//
//	reg := prometheus.NewRegistry()
//	client, _ := weblytics.New(apiKey, weblytics.WithMetrics(metrics.NewPrometheus(reg)))
package metrics
