package weblytics

import (
	"context"
	"net/http"

	"github.com/jdziat/weblytics-go/pkg/transport"
)

// HTTPHook observes or modifies every request the client makes.
type HTTPHook = transport.Hook

// HTTPHookFunc builds an HTTPHook from optional Before and After functions.
type HTTPHookFunc = transport.HookFunc

// HeaderHook sets static headers on every request.
func HeaderHook(headers map[string]string) HTTPHook {
	return HTTPHookFunc{
		Before: func(ctx context.Context, req *http.Request) error {
			for k, v := range headers {
				req.Header.Set(k, v)
			}
			return nil
		},
	}
}

// DynamicHeaderHook sets the headers returned by fn on every request.
func DynamicHeaderHook(fn func(ctx context.Context) map[string]string) HTTPHook {
	return HTTPHookFunc{
		Before: func(ctx context.Context, req *http.Request) error {
			for k, v := range fn(ctx) {
				req.Header.Set(k, v)
			}
			return nil
		},
	}
}

// LoggingHook logs every request at debug level.
func LoggingHook(logger StructuredLogger) HTTPHook {
	return transport.LoggingHook(logger)
}

// MetricsHook counts requests and records their durations and statuses.
func MetricsHook(m Metrics) HTTPHook {
	return transport.MetricsHook(m)
}
