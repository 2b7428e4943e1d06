package weblytics

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgconfig "github.com/jdziat/weblytics-go/pkg/config"
	"github.com/jdziat/weblytics-go/pkg/platform"
)

// Default configuration values, re-exported from pkg/config.
const (
	DefaultHost            = pkgconfig.DefaultHost
	DefaultTimeout         = pkgconfig.DefaultTimeout
	DefaultBatchSize       = pkgconfig.DefaultBatchSize
	DefaultFlushInterval   = pkgconfig.DefaultFlushInterval
	DefaultQueueCapacity   = pkgconfig.DefaultQueueCapacity
	DefaultMaxRetries      = pkgconfig.DefaultMaxRetries
	DefaultRetryBaseDelay  = pkgconfig.DefaultRetryBaseDelay
	DefaultMaxRetryDelay   = pkgconfig.DefaultMaxRetryDelay
	DefaultMaxJitter       = pkgconfig.DefaultMaxJitter
	DefaultSessionTimeout  = pkgconfig.DefaultSessionTimeout
	DefaultShutdownTimeout = pkgconfig.DefaultShutdownTimeout
)

// Config holds the configuration for a Client.
type Config struct {
	// APIKey authenticates every request. It may be left empty and supplied
	// later with Client.Init; until then the client is a no-op.
	APIKey string

	// Host is the collection API base URL. Defaults to DefaultHost.
	Host string

	// HTTPClient is used for all requests. Defaults to a client with Timeout.
	HTTPClient *http.Client

	// Timeout bounds each request. Defaults to 30 seconds.
	Timeout time.Duration

	// BatchSize is the queue length that triggers an immediate send and the
	// maximum number of events per request. Defaults to 10.
	BatchSize int

	// FlushInterval is how long the first queued event waits for company
	// before the queue is sent. Defaults to 2 seconds.
	FlushInterval time.Duration

	// QueueCapacity bounds the in-memory queue; the oldest events are
	// evicted beyond it. Defaults to 500.
	QueueCapacity int

	// MaxRetries is how many times a failing batch is retried before it is
	// dropped. Defaults to 3.
	MaxRetries int

	// RetryBaseDelay and MaxRetryDelay shape the exponential backoff.
	// Defaults are 1 second and 30 seconds.
	RetryBaseDelay time.Duration
	MaxRetryDelay  time.Duration

	// MaxJitter bounds the random delay added to each retry. Defaults to
	// 250ms; a negative value disables jitter.
	MaxJitter time.Duration

	// SessionTimeout is the idle period after which a new session starts.
	// Defaults to 30 minutes.
	SessionTimeout time.Duration

	// ShutdownTimeout bounds the final flush in Shutdown. Defaults to 35s.
	ShutdownTimeout time.Duration

	// Environment describes the host. Nil detects it: a js/wasm build in a
	// page is a browser, anything else is a server.
	Environment *platform.Environment

	// StoragePath, when set on a non-browser host, keeps device and user
	// ids in a SQLite database at this path and buffers events like a
	// browser does.
	StoragePath string

	// Label names the deployment (e.g. "staging"). It is appended to the
	// User-Agent.
	Label string

	// Debug installs a stderr logger when no logger is configured.
	Debug bool

	// ErrorHandler receives delivery errors nobody is waiting for, such as
	// a failed timer-driven send.
	ErrorHandler func(error)

	// Logger is a printf-style logger. StructuredLogger takes precedence.
	Logger Logger

	// StructuredLogger receives all SDK logging.
	StructuredLogger StructuredLogger

	// Metrics receives SDK telemetry. See pkg/metrics for Prometheus and
	// OpenTelemetry adapters.
	Metrics Metrics

	// OnBatchFlushed is called after every queued batch is sent.
	OnBatchFlushed func(BatchResult)

	// HTTPHooks observe or modify every request.
	HTTPHooks []HTTPHook

	// IdleWarningDuration logs a warning when the client is unused for this
	// long without Shutdown. Zero disables it.
	IdleWarningDuration time.Duration

	// CircuitBreakerThreshold opens a circuit breaker after this many
	// consecutive network, 429 or 5xx failures. Zero disables it.
	CircuitBreakerThreshold int

	// CircuitBreakerCooldown is how long an open breaker refuses requests
	// before letting a probe through. Defaults to 30 seconds.
	CircuitBreakerCooldown time.Duration
}

// String returns the config with the API key masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{APIKey: %q, Host: %q, BatchSize: %d, FlushInterval: %v, QueueCapacity: %d, MaxRetries: %d}",
		MaskCredential(c.APIKey),
		c.Host,
		c.BatchSize,
		c.FlushInterval,
		c.QueueCapacity,
		c.MaxRetries,
	)
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.MaxRetryDelay == 0 {
		c.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if c.MaxJitter == 0 {
		c.MaxJitter = DefaultMaxJitter
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.StructuredLogger == nil {
		switch {
		case c.Logger != nil:
			c.StructuredLogger = WrapPrintfLogger(c.Logger)
		case c.Debug:
			c.StructuredLogger = newDebugLogger()
		}
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
}

// Validate checks the configuration. The API key is not required here: a
// client without one is valid and stays inert until Init.
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrInvalidHost
	}
	u, err := url.Parse(c.Host)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidHost, c.Host)
	}

	if c.BatchSize < 1 || c.BatchSize > pkgconfig.MaxBatchSize {
		return fmt.Errorf("%w: batch size must be between 1 and %d, got %d",
			ErrInvalidConfig, pkgconfig.MaxBatchSize, c.BatchSize)
	}
	if c.QueueCapacity < 1 || c.QueueCapacity > pkgconfig.MaxQueueCapacity {
		return fmt.Errorf("%w: queue capacity must be between 1 and %d, got %d",
			ErrInvalidConfig, pkgconfig.MaxQueueCapacity, c.QueueCapacity)
	}
	if c.QueueCapacity < c.BatchSize {
		return fmt.Errorf("%w: queue capacity (%d) cannot be smaller than batch size (%d)",
			ErrInvalidConfig, c.QueueCapacity, c.BatchSize)
	}
	if c.MaxRetries < 0 || c.MaxRetries > pkgconfig.MaxMaxRetries {
		return fmt.Errorf("%w: max retries must be between 0 and %d, got %d",
			ErrInvalidConfig, pkgconfig.MaxMaxRetries, c.MaxRetries)
	}

	if c.Timeout < 0 || c.Timeout > pkgconfig.MaxTimeout {
		return fmt.Errorf("%w: timeout must be between 0 and %v", ErrInvalidConfig, pkgconfig.MaxTimeout)
	}
	if c.FlushInterval < pkgconfig.MinFlushInterval {
		return fmt.Errorf("%w: flush interval must be at least %v", ErrInvalidConfig, pkgconfig.MinFlushInterval)
	}
	if c.RetryBaseDelay < 0 || c.MaxRetryDelay < c.RetryBaseDelay {
		return fmt.Errorf("%w: retry delays must satisfy 0 <= base (%v) <= max (%v)",
			ErrInvalidConfig, c.RetryBaseDelay, c.MaxRetryDelay)
	}
	if c.SessionTimeout < pkgconfig.MinSessionTimeout {
		return fmt.Errorf("%w: session timeout must be at least %v", ErrInvalidConfig, pkgconfig.MinSessionTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalidConfig)
	}
	if c.CircuitBreakerThreshold < 0 || c.CircuitBreakerCooldown < 0 {
		return fmt.Errorf("%w: circuit breaker settings must not be negative", ErrInvalidConfig)
	}
	return nil
}

// userAgent identifies the SDK on every request.
func (c *Config) userAgent() string {
	ua := "weblytics-go/" + Version
	if label := strings.TrimSpace(c.Label); label != "" {
		ua += " (" + label + ")"
	}
	return ua
}
