package transport

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// Hook observes or modifies requests made by the transport. It runs for
// blocking requests and for detached teardown sends issued through net/http.
type Hook interface {
	// BeforeRequest may modify the request; an error aborts it.
	BeforeRequest(ctx context.Context, req *http.Request) error

	// AfterResponse receives the response or the transport error.
	AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error)
}

// HookFunc builds a Hook from optional functions.
type HookFunc struct {
	Before func(ctx context.Context, req *http.Request) error
	After  func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error)
}

// BeforeRequest implements Hook.
func (f HookFunc) BeforeRequest(ctx context.Context, req *http.Request) error {
	if f.Before != nil {
		return f.Before(ctx, req)
	}
	return nil
}

// AfterResponse implements Hook.
func (f HookFunc) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
	if f.After != nil {
		f.After(ctx, req, resp, duration, err)
	}
}

type hookChain []Hook

func (c hookChain) BeforeRequest(ctx context.Context, req *http.Request) error {
	for _, h := range c {
		if err := h.BeforeRequest(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// AfterResponse runs in reverse order so hooks wrap like middleware.
func (c hookChain) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
	for i := len(c) - 1; i >= 0; i-- {
		c[i].AfterResponse(ctx, req, resp, duration, err)
	}
}

func combineHooks(hooks []Hook) Hook {
	var kept hookChain
	for _, h := range hooks {
		if h != nil {
			kept = append(kept, h)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return kept
	}
}

// LoggingHook logs every request at debug level.
func LoggingHook(logger Logger) Hook {
	return HookFunc{
		After: func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
			if err != nil {
				logger.Debug("request failed", "path", req.URL.Path, "duration", duration.String(), "error", err)
				return
			}
			logger.Debug("request completed", "path", req.URL.Path, "duration", duration.String(), "status", resp.StatusCode)
		},
	}
}

// MetricsRecorder is the subset of the SDK metrics interface used by
// MetricsHook.
type MetricsRecorder interface {
	IncrementCounter(name string, value int64)
	RecordDuration(name string, duration time.Duration)
}

// MetricsHook records request counts, durations and status codes:
// weblytics.http.requests, weblytics.http.duration, weblytics.http.errors
// and weblytics.http.status.<code>.
func MetricsHook(m MetricsRecorder) Hook {
	if m == nil {
		return nil
	}
	return HookFunc{
		After: func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
			m.IncrementCounter("weblytics.http.requests", 1)
			m.RecordDuration("weblytics.http.duration", duration)
			if err != nil {
				m.IncrementCounter("weblytics.http.errors", 1)
				return
			}
			m.IncrementCounter("weblytics.http.status."+strconv.Itoa(resp.StatusCode), 1)
		},
	}
}
