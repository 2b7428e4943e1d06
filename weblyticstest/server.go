package weblyticstest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/jdziat/weblytics-go/pkg/transport"
	"github.com/jdziat/weblytics-go/pkg/types"
)

// Response is a scripted reply. A string Body is written as text/plain;
// anything else is encoded as JSON.
type Response struct {
	Status int
	Body   any
}

// MockServer is a collection API that records every request.
//
// By default /track answers {"accepted": <events in the request>},
// /identify answers {"ok": true} and /query answers {"rows": []}.
type MockServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*RecordedRequest
	script   []Response
	respond  func(r *RecordedRequest) Response
	notify   chan struct{}
}

// RecordedRequest is one request received by the server.
type RecordedRequest struct {
	Method      string
	Path        string
	Header      http.Header
	Body        []byte
	ContentType string
}

// APIKey returns the X-API-Key header.
func (r *RecordedRequest) APIKey() string {
	return r.Header.Get(transport.HeaderAPIKey)
}

// Events decodes the events of a /track request, single or batch.
func (r *RecordedRequest) Events() []types.Event {
	var batch types.BatchRequest
	if err := json.Unmarshal(r.Body, &batch); err == nil && batch.Events != nil {
		return batch.Events
	}
	var ev types.Event
	if err := json.Unmarshal(r.Body, &ev); err != nil {
		return nil
	}
	return []types.Event{ev}
}

// ClientOriginated reports the batch-level clientOriginated flag.
func (r *RecordedRequest) ClientOriginated() bool {
	var batch types.BatchRequest
	if err := json.Unmarshal(r.Body, &batch); err != nil {
		return false
	}
	return batch.ClientOriginated
}

// Identify decodes an /identify request.
func (r *RecordedRequest) Identify() types.IdentifyParams {
	var p types.IdentifyParams
	_ = json.Unmarshal(r.Body, &p)
	return p
}

// Decode unmarshals the body into v.
func (r *RecordedRequest) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// NewMockServer starts a mock collection API.
func NewMockServer() *MockServer {
	ms := &MockServer{notify: make(chan struct{}, 1)}
	ms.Server = httptest.NewServer(http.HandlerFunc(ms.serve))
	return ms
}

func (ms *MockServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rec := &RecordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Header:      r.Header.Clone(),
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
	}

	ms.mu.Lock()
	ms.requests = append(ms.requests, rec)
	var resp Response
	switch {
	case len(ms.script) > 0:
		resp = ms.script[0]
		ms.script = ms.script[1:]
	case ms.respond != nil:
		resp = ms.respond(rec)
	default:
		resp = defaultResponse(rec)
	}
	ms.mu.Unlock()

	select {
	case ms.notify <- struct{}{}:
	default:
	}

	if s, ok := resp.Body.(string); ok {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(resp.Status)
		_, _ = io.WriteString(w, s)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	if resp.Body != nil {
		_ = json.NewEncoder(w).Encode(resp.Body)
	}
}

func defaultResponse(r *RecordedRequest) Response {
	switch r.Path {
	case transport.PathTrack:
		return Response{Status: http.StatusOK, Body: map[string]int{"accepted": len(r.Events())}}
	case transport.PathIdentify:
		return Response{Status: http.StatusOK, Body: map[string]bool{"ok": true}}
	case transport.PathQuery:
		return Response{Status: http.StatusOK, Body: map[string]any{"rows": []any{}}}
	default:
		return Response{Status: http.StatusNotFound, Body: "not found"}
	}
}

// Script queues responses returned, in order, before falling back to the
// default or RespondWithFunc behavior.
func (ms *MockServer) Script(responses ...Response) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.script = append(ms.script, responses...)
}

// RespondWithFunc replaces the default responses.
func (ms *MockServer) RespondWithFunc(fn func(r *RecordedRequest) Response) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.respond = fn
}

// RespondWith answers every request with status and body.
func (ms *MockServer) RespondWith(status int, body any) {
	ms.RespondWithFunc(func(*RecordedRequest) Response {
		return Response{Status: status, Body: body}
	})
}

// RespondWithError answers every request with status and a text message.
func (ms *MockServer) RespondWithError(status int, message string) {
	ms.RespondWith(status, message)
}

// RespondWithServerError answers every request with 500.
func (ms *MockServer) RespondWithServerError() {
	ms.RespondWithError(http.StatusInternalServerError, "internal server error")
}

// RespondWithRateLimit answers every request with 429.
func (ms *MockServer) RespondWithRateLimit() {
	ms.RespondWithError(http.StatusTooManyRequests, "rate limit exceeded")
}

// RespondWithDefaults restores the default responses and clears the script.
func (ms *MockServer) RespondWithDefaults() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.respond = nil
	ms.script = nil
}

// Requests returns every recorded request.
func (ms *MockServer) Requests() []*RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]*RecordedRequest(nil), ms.requests...)
}

// RequestCount returns the number of recorded requests.
func (ms *MockServer) RequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// LastRequest returns the most recent request, or nil.
func (ms *MockServer) LastRequest() *RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.requests) == 0 {
		return nil
	}
	return ms.requests[len(ms.requests)-1]
}

// RequestsWithPath returns the requests made to path.
func (ms *MockServer) RequestsWithPath(path string) []*RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var matched []*RecordedRequest
	for _, req := range ms.requests {
		if req.Path == path {
			matched = append(matched, req)
		}
	}
	return matched
}

// TrackedEvents returns the events of every /track request, in order.
func (ms *MockServer) TrackedEvents() []types.Event {
	var events []types.Event
	for _, req := range ms.RequestsWithPath(transport.PathTrack) {
		events = append(events, req.Events()...)
	}
	return events
}

// WaitForRequests blocks until at least n requests were recorded or
// timeout passes, and reports whether n was reached.
func (ms *MockServer) WaitForRequests(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if ms.RequestCount() >= n {
			return true
		}
		select {
		case <-ms.notify:
		case <-deadline.C:
			return ms.RequestCount() >= n
		}
	}
}

// Reset clears the recorded requests.
func (ms *MockServer) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requests = nil
}
