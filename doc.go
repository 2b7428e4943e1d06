// Package weblytics is a Go SDK for the Weblytics event collection API.
//
// It tracks analytics events and binds devices to users. Compiled for
// GOOS=js GOARCH=wasm and loaded in a page, it behaves like the script-tag
// SDK: events are buffered and sent in batches, and identity lives in
// localStorage and sessionStorage under the keys the script-tag SDK uses,
// so both can run on the same page. On servers every call is sent
// immediately.
//
// # Quick Start
//
//	client, err := weblytics.New(os.Getenv("WEBLYTICS_API_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(context.Background())
//
//	_, err = client.Track(ctx, weblytics.Event{
//	    EventType:       "signup",
//	    UserID:          "u-42",
//	    EventProperties: weblytics.JSONObject{"plan": "pro"},
//	})
//
// # Configuration
//
//	client, err := weblytics.New(apiKey,
//	    weblytics.WithHost("https://collect.example.com"),
//	    weblytics.WithBatchSize(20),
//	    weblytics.WithFlushInterval(5*time.Second),
//	    weblytics.WithStructuredLogger(weblytics.NewSlogAdapter(slog.Default())),
//	)
//
// The API key may also be supplied later with [Client.Init]. Until then
// every call is a no-op that returns a zero result and logs a warning.
//
// # Delivery Semantics
//
// In a browser, [Client.Track] returns at once with a pending result.
// Queued events are sent when any of these happens:
//
//   - the queue reaches the batch size (10 by default)
//   - the flush interval (2s) has passed since the first queued event
//   - the page becomes hidden or is unloaded
//   - [Client.Flush] or [Client.Shutdown] is called
//
// At most one request is in flight per client; triggers that arrive while
// one is running share its result. A batch that fails with a network
// error, 429 or 5xx goes back to the front of the queue and is retried
// with exponential backoff (1s doubling up to 30s, plus up to 250ms of
// jitter). After 3 retries it is dropped silently. Any other 4xx drops the
// batch at once. The queue holds 500 events and evicts the oldest beyond
// that. Delivery is at-most-once per attempt: the insert_id on every event
// lets the API discard duplicates.
//
// [Client.TrackBatch], [Client.Identify] and [Client.Query] always send
// immediately and return typed [APIError] values.
//
// [WithCircuitBreaker] stops sending after repeated retryable failures and
// probes again after a cooldown. Refused requests fail with
// [ErrCircuitOpen] and count as retryable.
//
// # Logging
//
// Any [StructuredLogger] works. [NewSlogAdapter] and [NewLogrusAdapter]
// cover log/slog and logrus.
//
// # Graceful Shutdown
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	if err := client.Shutdown(ctx); err != nil {
//	    log.Printf("shutdown: %v", err)
//	}
//
// Shutdown stops listening for page lifecycle signals, sends what is
// queued and waits for outstanding requests. Afterwards every method
// returns [ErrClientClosed].
//
// # Subpackages
//
//   - [github.com/jdziat/weblytics-go/pkg/metrics]: Prometheus and
//     OpenTelemetry implementations of [Metrics].
//   - [github.com/jdziat/weblytics-go/pkg/config]: the YAML configuration
//     file, applied with [WithFileConfig].
//   - [github.com/jdziat/weblytics-go/weblyticstest]: a mock collection API
//     and a fake browser environment for tests.
package weblytics

// Version is the SDK version sent in the User-Agent header.
const Version = "0.4.0"
