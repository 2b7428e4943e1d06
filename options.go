package weblytics

import (
	"net/http"
	"time"

	pkgconfig "github.com/jdziat/weblytics-go/pkg/config"
	"github.com/jdziat/weblytics-go/pkg/platform"
)

// ConfigOption modifies a Config.
type ConfigOption func(*Config)

// WithHost sets the collection API base URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(client *http.Client) ConfigOption {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithBatchSize sets the queue length that triggers an immediate send.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithFlushInterval sets the debounce delay after the first queued event.
func WithFlushInterval(interval time.Duration) ConfigOption {
	return func(c *Config) {
		c.FlushInterval = interval
	}
}

// WithQueueCapacity bounds the in-memory queue.
func WithQueueCapacity(capacity int) ConfigOption {
	return func(c *Config) {
		c.QueueCapacity = capacity
	}
}

// WithMaxRetries sets how often a failing batch is retried before it is dropped.
func WithMaxRetries(maxRetries int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
	}
}

// WithRetryBaseDelay sets the delay before the first retry.
func WithRetryBaseDelay(delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryBaseDelay = delay
	}
}

// WithMaxRetryDelay caps the exponential retry delay.
func WithMaxRetryDelay(delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxRetryDelay = delay
	}
}

// WithMaxJitter bounds the random delay added to each retry. A negative
// value disables jitter.
func WithMaxJitter(jitter time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxJitter = jitter
	}
}

// WithSessionTimeout sets the idle period after which a new session starts.
func WithSessionTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.SessionTimeout = timeout
	}
}

// WithShutdownTimeout bounds the final flush in Shutdown.
func WithShutdownTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.ShutdownTimeout = timeout
	}
}

// WithEnvironment replaces host detection. Tests use it to run the
// buffered browser path natively:
//
//	env := weblyticstest.NewBrowserEnvironment("https://shop.example/?utm_source=ads")
//	client, _ := weblytics.New(apiKey, weblytics.WithEnvironment(env.Environment()))
func WithEnvironment(env platform.Environment) ConfigOption {
	return func(c *Config) {
		c.Environment = &env
	}
}

// WithStoragePath keeps device and user ids in a SQLite database so a
// native process keeps its identity across restarts.
func WithStoragePath(path string) ConfigOption {
	return func(c *Config) {
		c.StoragePath = path
	}
}

// WithLabel names the deployment in the User-Agent.
func WithLabel(label string) ConfigOption {
	return func(c *Config) {
		c.Label = label
	}
}

// WithDebug enables debug logging to stderr when no logger is set.
func WithDebug(debug bool) ConfigOption {
	return func(c *Config) {
		c.Debug = debug
	}
}

// WithErrorHandler receives delivery errors that no caller is waiting for.
func WithErrorHandler(handler func(error)) ConfigOption {
	return func(c *Config) {
		c.ErrorHandler = handler
	}
}

// WithLogger sets a printf-style logger.
//
//	client, _ := weblytics.New(apiKey, weblytics.WithLogger(log.Default()))
func WithLogger(logger Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithStructuredLogger sets the structured logger. It takes precedence over
// WithLogger.
//
//	client, _ := weblytics.New(apiKey,
//	    weblytics.WithStructuredLogger(weblytics.NewSlogAdapter(slog.Default())),
//	)
func WithStructuredLogger(logger StructuredLogger) ConfigOption {
	return func(c *Config) {
		c.StructuredLogger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics Metrics) ConfigOption {
	return func(c *Config) {
		c.Metrics = metrics
	}
}

// WithOnBatchFlushed is called after every queued batch is sent, retried
// or dropped.
//
//	client, _ := weblytics.New(apiKey,
//	    weblytics.WithOnBatchFlushed(func(r weblytics.BatchResult) {
//	        if r.Err != nil {
//	            log.Printf("batch of %d failed: %v", r.EventCount, r.Err)
//	        }
//	    }),
//	)
func WithOnBatchFlushed(callback func(BatchResult)) ConfigOption {
	return func(c *Config) {
		c.OnBatchFlushed = callback
	}
}

// WithHTTPHooks adds request hooks. BeforeRequest runs in order and
// AfterResponse in reverse order.
//
//	client, _ := weblytics.New(apiKey,
//	    weblytics.WithHTTPHooks(weblytics.HeaderHook(map[string]string{"X-Tenant": "acme"})),
//	)
func WithHTTPHooks(hooks ...HTTPHook) ConfigOption {
	return func(c *Config) {
		c.HTTPHooks = append(c.HTTPHooks, hooks...)
	}
}

// WithIdleWarning logs a warning when the client goes unused for d without
// Shutdown being called.
func WithIdleWarning(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.IdleWarningDuration = d
	}
}

// WithCircuitBreaker stops sending after threshold consecutive network,
// 429 or 5xx failures, for cooldown. Refused batches stay queued and are
// retried with backoff.
func WithCircuitBreaker(threshold int, cooldown time.Duration) ConfigOption {
	return func(c *Config) {
		c.CircuitBreakerThreshold = threshold
		c.CircuitBreakerCooldown = cooldown
	}
}

// WithFileConfig applies the set fields of a YAML configuration file.
// Options given after it override the file.
//
//	fc, err := config.LoadFile(".weblytics.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, _ := weblytics.New(fc.APIKey, weblytics.WithFileConfig(fc))
func WithFileConfig(fc *pkgconfig.FileConfig) ConfigOption {
	return func(c *Config) {
		if fc == nil {
			return
		}
		if fc.APIKey != "" && c.APIKey == "" {
			c.APIKey = fc.APIKey
		}
		setString(&c.Host, fc.Host)
		setString(&c.Label, fc.Environment)
		setString(&c.StoragePath, fc.Storage.Path)
		if fc.Debug {
			c.Debug = true
		}
		setInt(&c.BatchSize, fc.BatchSize)
		setInt(&c.QueueCapacity, fc.QueueCapacity)
		setInt(&c.MaxRetries, fc.MaxRetries)
		setDuration(&c.FlushInterval, fc.FlushInterval)
		setDuration(&c.RetryBaseDelay, fc.RetryBaseDelay)
		setDuration(&c.MaxRetryDelay, fc.MaxRetryDelay)
		setDuration(&c.SessionTimeout, fc.SessionTimeout)
		setDuration(&c.Timeout, fc.Timeout)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
