package weblyticstest

import (
	"context"
	"time"

	"github.com/jdziat/weblytics-go"
)

// TestingT is satisfied by *testing.T and *testing.B.
type TestingT interface {
	Fatalf(format string, args ...any)
	Cleanup(func())
	Helper()
}

// TestAPIKey is the API key used by the test clients.
const TestAPIKey = "wl_test_0123456789abcdef"

// NewTestClient returns a server-mode client talking to a new MockServer.
// Both are cleaned up when the test ends.
func NewTestClient(t TestingT, opts ...weblytics.ConfigOption) (*weblytics.Client, *MockServer) {
	t.Helper()
	server := NewMockServer()
	client := newClient(t, server, opts)
	return client, server
}

// NewBrowserTestClient returns a buffered client running in env. Retries
// use millisecond delays so failure paths finish quickly.
func NewBrowserTestClient(t TestingT, env *BrowserEnvironment, opts ...weblytics.ConfigOption) (*weblytics.Client, *MockServer) {
	t.Helper()
	server := NewMockServer()
	base := []weblytics.ConfigOption{
		weblytics.WithEnvironment(env.Environment()),
		weblytics.WithRetryBaseDelay(5 * time.Millisecond),
		weblytics.WithMaxRetryDelay(20 * time.Millisecond),
		weblytics.WithMaxJitter(-1),
	}
	client := newClient(t, server, append(base, opts...))
	return client, server
}

func newClient(t TestingT, server *MockServer, opts []weblytics.ConfigOption) *weblytics.Client {
	t.Helper()
	base := []weblytics.ConfigOption{
		weblytics.WithHost(server.URL),
		weblytics.WithShutdownTimeout(5 * time.Second),
	}
	client, err := weblytics.New(TestAPIKey, append(base, opts...)...)
	if err != nil {
		server.Close()
		t.Fatalf("weblyticstest: create client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Shutdown(context.Background())
		server.Close()
	})
	return client
}
