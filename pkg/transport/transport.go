// Package transport delivers events and identify calls to the collection API.
//
// Every request is a JSON POST carrying the X-API-Key header. A 2xx response
// is success; any other status becomes an *errors.APIError carrying the
// status and the raw body, and a request that never produced a response
// becomes an APIError with status 0. Retryability is decided by the error,
// not here.
//
// Batches sent with a teardown intent (page hidden or unloading) are
// fire-and-forget: the request is detached from the caller and the call
// reports the batch as accepted without waiting for the response.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/jdziat/weblytics-go/pkg/errors"
	"github.com/jdziat/weblytics-go/pkg/types"
)

// API paths.
const (
	PathTrack    = "/track"
	PathIdentify = "/identify"
	PathQuery    = "/query"
)

// Header names.
const (
	HeaderAPIKey    = "X-API-Key"
	HeaderDeviceID  = "X-Device-Id"
	HeaderSessionID = "X-Session-Id"
)

const (
	// maxResponseSize limits the size of HTTP response bodies.
	maxResponseSize = 10 * 1024 * 1024 // 10MB

	// maxRequestBodySize limits the size of HTTP request bodies.
	maxRequestBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultTimeout bounds a single request, including teardown sends.
	DefaultTimeout = 30 * time.Second
)

// Logger is the structured logger used by the transport.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Config configures an HTTP transport.
type Config struct {
	// APIKey and Host may be left empty and supplied later with SetCredentials.
	APIKey string
	Host   string

	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration

	// UserAgent is sent with every request when set.
	UserAgent string

	// Headers returns extra headers for every request, e.g. the current
	// device and session ids. It is called once per request.
	Headers func() map[string]string

	// Hooks observe or modify every request.
	Hooks []Hook

	// Breaker, when set, stops sending while the API keeps failing.
	Breaker *Breaker

	Logger Logger
}

// HTTP is the collection API client. It is safe for concurrent use.
type HTTP struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	headers   func() map[string]string
	hook      Hook
	breaker   *Breaker
	logger    Logger

	mu     sync.RWMutex
	apiKey string
	host   string

	// teardown tracks detached sends so Close can wait for them.
	teardown sync.WaitGroup
}

// New returns an HTTP transport.
func New(cfg Config) *HTTP {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTP{
		client:    client,
		timeout:   timeout,
		userAgent: cfg.UserAgent,
		headers:   cfg.Headers,
		hook:      combineHooks(cfg.Hooks),
		breaker:   cfg.Breaker,
		logger:    cfg.Logger,
		apiKey:    cfg.APIKey,
		host:      NormalizeHost(cfg.Host),
	}
}

// NormalizeHost trims whitespace and trailing slashes.
func NormalizeHost(host string) string {
	return strings.TrimRight(strings.TrimSpace(host), "/")
}

// SetCredentials replaces the API key and host.
func (t *HTTP) SetCredentials(apiKey, host string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apiKey = apiKey
	t.host = NormalizeHost(host)
}

// Configured reports whether an API key is set.
func (t *HTTP) Configured() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.apiKey != ""
}

// Host returns the API host without a trailing slash.
func (t *HTTP) Host() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.host
}

// Send posts a client-originated batch to /track and returns the accepted
// count. Teardown intents return len(events) immediately.
func (t *HTTP) Send(ctx context.Context, events []types.Event, intent types.Intent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	body := types.BatchRequest{Events: events, ClientOriginated: true}

	if intent.Teardown() {
		if err := t.sendDetached(ctx, PathTrack, body); err != nil {
			return 0, err
		}
		return len(events), nil
	}
	return t.track(ctx, body, len(events))
}

// TrackOne posts a single event to /track.
func (t *HTTP) TrackOne(ctx context.Context, ev types.Event) (int, error) {
	return t.track(ctx, ev, 1)
}

// TrackBatch posts events to /track as one request.
func (t *HTTP) TrackBatch(ctx context.Context, events []types.Event, clientOriginated bool) (int, error) {
	return t.track(ctx, types.BatchRequest{Events: events, ClientOriginated: clientOriginated}, len(events))
}

func (t *HTTP) track(ctx context.Context, body any, sent int) (int, error) {
	var resp types.TrackResponse
	if _, err := t.post(ctx, PathTrack, body, &resp); err != nil {
		return 0, err
	}
	if resp.Accepted == nil {
		return sent, nil
	}
	return *resp.Accepted, nil
}

// Identify posts params to /identify.
func (t *HTTP) Identify(ctx context.Context, params types.IdentifyParams) (types.IdentifyResponse, error) {
	var resp types.IdentifyResponse
	_, err := t.post(ctx, PathIdentify, params, &resp)
	return resp, err
}

// Query posts req to /query. The result is JSON or text depending on the
// response content type.
func (t *HTTP) Query(ctx context.Context, req types.QueryRequest) (*types.QueryResult, error) {
	raw, err := t.post(ctx, PathQuery, req, nil)
	if err != nil {
		return nil, err
	}
	result := &types.QueryResult{ContentType: raw.contentType}
	if types.IsJSONContentType(raw.contentType) {
		result.JSON = json.RawMessage(raw.body)
	} else {
		result.Text = string(raw.body)
	}
	return result, nil
}

// Close waits for detached teardown sends to finish or ctx to end.
func (t *HTTP) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.teardown.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type response struct {
	contentType string
	body        []byte
}

// request is a prepared call, shared by the blocking and detached paths.
type request struct {
	url     string
	body    []byte
	headers http.Header
}

func (t *HTTP) prepare(path string, body any) (*request, error) {
	t.mu.RLock()
	apiKey, host := t.apiKey, t.host
	t.mu.RUnlock()

	if apiKey == "" {
		return nil, pkgerrors.ErrNotInitialized
	}
	if host == "" {
		return nil, pkgerrors.ErrInvalidHost
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("weblytics: failed to marshal request body: %w", err)
	}
	if len(b) > maxRequestBodySize {
		return nil, fmt.Errorf("weblytics: request body size %d bytes exceeds maximum %d bytes",
			len(b), maxRequestBodySize)
	}

	h := make(http.Header)
	h.Set(HeaderAPIKey, apiKey)
	h.Set("Content-Type", "application/json")
	if t.userAgent != "" {
		h.Set("User-Agent", t.userAgent)
	}
	if t.headers != nil {
		for k, v := range t.headers() {
			if v != "" {
				h.Set(k, v)
			}
		}
	}
	return &request{url: host + path, body: b, headers: h}, nil
}

func (t *HTTP) post(ctx context.Context, path string, body, result any) (*response, error) {
	req, err := t.prepare(path, body)
	if err != nil {
		return nil, err
	}
	resp, err := t.do(ctx, req)
	if err != nil {
		return nil, err
	}
	// A 2xx body that is not JSON (a proxy page, a bare "OK") reads as an
	// empty one: the request was accepted either way.
	if result != nil && len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, result); err != nil {
			t.debug("ignoring undecodable success body", "path", path, "content_type", resp.contentType, "error", err)
		}
	}
	return resp, nil
}

// do executes a single request through the breaker, if any.
func (t *HTTP) do(ctx context.Context, req *request) (*response, error) {
	if t.breaker == nil {
		return t.roundTrip(ctx, req)
	}
	if !t.breaker.Allow() {
		return nil, openCircuitError()
	}
	resp, err := t.roundTrip(ctx, req)
	t.breaker.Record(err)
	return resp, err
}

func (t *HTTP) roundTrip(ctx context.Context, req *request) (*response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.url, bytes.NewReader(req.body))
	if err != nil {
		return nil, fmt.Errorf("weblytics: failed to create request: %w", err)
	}
	httpReq.Header = req.headers.Clone()

	if t.hook != nil {
		if err := t.hook.BeforeRequest(ctx, httpReq); err != nil {
			return nil, fmt.Errorf("weblytics: hook BeforeRequest failed: %w", err)
		}
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	duration := time.Since(start)

	if t.hook != nil {
		t.hook.AfterResponse(ctx, httpReq, resp, duration, err)
	}

	if err != nil {
		return nil, pkgerrors.NewNetworkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, pkgerrors.NewNetworkError(err)
	}
	if len(respBody) > maxResponseSize {
		return nil, fmt.Errorf("weblytics: response body exceeded maximum size of %d bytes", maxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := pkgerrors.NewAPIError(resp.StatusCode, respBody)
		apiErr.RequestID = resp.Header.Get("X-Request-Id")
		return nil, apiErr
	}

	return &response{
		contentType: resp.Header.Get("Content-Type"),
		body:        respBody,
	}, nil
}

func (t *HTTP) debug(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Debug(msg, args...)
	}
}

func (t *HTTP) warn(msg string, args ...any) {
	if t.logger != nil {
		t.logger.Warn(msg, args...)
	}
}
