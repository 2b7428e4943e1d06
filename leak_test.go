package weblytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jdziat/weblytics-go/pkg/platform"
	"github.com/jdziat/weblytics-go/pkg/storage"
)

// TestMain runs goleak verification for all tests in the package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
		goleak.IgnoreTopFunction("testing.(*T).Parallel"),
		goleak.IgnoreTopFunction("net/http.(*http2ClientConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*http2clientConnReadLoop).run"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func testBrowserEnv() (platform.Environment, *platform.Signals) {
	signals := platform.NewSignals()
	return platform.Environment{
		Browser:   true,
		Durable:   storage.NewMemory(),
		Session:   storage.NewMemory(),
		Location:  func() string { return "https://example.com/" },
		Lifecycle: signals,
	}, signals
}

func acceptAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/identify":
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	default:
		json.NewEncoder(w).Encode(map[string]int{"accepted": 1})
	}
}

// TestClientShutdown_NoLeaks verifies that Shutdown stops every goroutine
// started by the buffered path: timers, drains, teardown sends and the
// idle watcher.
func TestClientShutdown_NoLeaks(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("testing.(*T).Run"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"))

	server := httptest.NewServer(http.HandlerFunc(acceptAll))
	defer server.Close()

	env, signals := testBrowserEnv()
	client, err := New("test-key",
		WithHost(server.URL),
		WithEnvironment(env),
		WithBatchSize(5),
		WithFlushInterval(20*time.Millisecond),
		WithIdleWarning(time.Hour),
		WithStructuredLogger(NopLogger{}),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 12; i++ {
		if _, err := client.Track(ctx, Event{EventType: "view"}); err != nil {
			t.Fatalf("Track failed: %v", err)
		}
	}
	signals.Fire(platform.SignalHidden)
	if _, err := client.Track(ctx, Event{EventType: "late"}); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	if err := client.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if signals.Subscribers() != 0 {
		t.Errorf("lifecycle subscribers after Shutdown = %d, want 0", signals.Subscribers())
	}
	server.CloseClientConnections()
}

func TestClientShutdown_Twice(t *testing.T) {
	client, err := New("test-key")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := client.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown failed: %v", err)
	}
	if err := client.Shutdown(context.Background()); err != ErrClientClosed {
		t.Errorf("second Shutdown error = %v, want ErrClientClosed", err)
	}
}
