package weblytics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jdziat/weblytics-go/pkg/lifecycle"
	"github.com/jdziat/weblytics-go/pkg/platform"
	"github.com/jdziat/weblytics-go/pkg/storage"
	"github.com/jdziat/weblytics-go/pkg/transport"
)

// Client tracks events and identifies users.
//
// In a browser (a js/wasm build running in a page) events are queued and
// sent in batches; identity and campaign attribution are kept in
// localStorage and sessionStorage under the same keys the script-tag SDK
// uses. Everywhere else every call is sent immediately.
//
// A Client is safe for concurrent use. Call Shutdown when done so queued
// events are delivered.
type Client struct {
	config    *Config
	transport *transport.HTTP
	strategy  deliveryStrategy
	lifecycle *lifecycle.Manager
	breaker   *transport.Breaker
	buffered  bool

	// closers are released after the final flush.
	closers []io.Closer
}

// New creates a client. apiKey may be empty; the client then stays inert
// until Init is called.
//
//	client, err := weblytics.New(apiKey, weblytics.WithHost("https://collect.example.com"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(context.Background())
func New(apiKey string, opts ...ConfigOption) (*Client, error) {
	cfg := &Config{APIKey: apiKey}
	for _, opt := range opts {
		opt(cfg)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a client from cfg. Unset fields get defaults.
func NewWithConfig(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{config: cfg}

	env, err := c.environment()
	if err != nil {
		return nil, err
	}
	c.buffered = env.Browser

	hooks := append([]HTTPHook(nil), cfg.HTTPHooks...)
	if cfg.Metrics != nil {
		hooks = append(hooks, MetricsHook(cfg.Metrics))
	}
	if cfg.Debug && cfg.StructuredLogger != nil {
		hooks = append(hooks, LoggingHook(cfg.StructuredLogger))
	}

	if cfg.CircuitBreakerThreshold > 0 {
		c.breaker = transport.NewBreaker(transport.BreakerConfig{
			FailureThreshold: cfg.CircuitBreakerThreshold,
			Cooldown:         cfg.CircuitBreakerCooldown,
			OnStateChange:    c.onBreakerChange,
		})
	}

	c.transport = transport.New(transport.Config{
		APIKey:     strings.TrimSpace(cfg.APIKey),
		Host:       cfg.Host,
		HTTPClient: cfg.HTTPClient,
		Timeout:    cfg.Timeout,
		UserAgent:  cfg.userAgent(),
		Headers:    c.headers,
		Hooks:      hooks,
		Breaker:    c.breaker,
		Logger:     cfg.StructuredLogger,
	})

	if env.Browser {
		c.strategy = newBufferedStrategy(bufferedConfig{
			env:       env,
			transport: c.transport,
			config:    cfg,
			onError:   c.handleError,
		})
	} else {
		c.strategy = newDirectStrategy(c.transport, cfg.Metrics)
	}

	c.lifecycle = lifecycle.NewManager(lifecycle.Config{
		IdleWarning: cfg.IdleWarningDuration,
		Logger:      cfg.StructuredLogger,
		Metrics:     cfg.Metrics,
	})

	c.logDebug("client created", "host", cfg.Host, "buffered", c.buffered, "initialized", c.transport.Configured())
	return c, nil
}

// environment resolves the host capabilities. A storage path turns a
// native host into a buffered one backed by SQLite.
func (c *Client) environment() (platform.Environment, error) {
	var env platform.Environment
	if c.config.Environment != nil {
		env = *c.config.Environment
	} else {
		env = platform.Detect()
	}

	if c.config.StoragePath != "" && !env.Browser {
		store, err := storage.NewSQLiteStore(c.config.StoragePath)
		if err != nil {
			return platform.Environment{}, fmt.Errorf("weblytics: open storage: %w", err)
		}
		c.closers = append(c.closers, store)
		env.Browser = true
		env.Durable = store
		if env.Session == nil {
			env.Session = storage.NewMemory()
		}
	}
	return env.Normalize(), nil
}

// Init sets the API key and host after construction. An empty host keeps
// the current one; a trailing slash is stripped.
func (c *Client) Init(apiKey, host string) {
	if host == "" {
		host = c.transport.Host()
	}
	c.transport.SetCredentials(strings.TrimSpace(apiKey), host)
	c.logDebug("client initialized", "host", c.transport.Host())
}

// Initialized reports whether an API key is configured.
func (c *Client) Initialized() bool {
	return c.transport.Configured()
}

// Track records an event.
//
// In a browser the event is queued and Track returns immediately with
// {Accepted: 1, Pending: true}; delivery failures never surface here.
// Elsewhere the event is sent now and the API's accepted count returned.
func (c *Client) Track(ctx context.Context, ev Event) (TrackResult, error) {
	if err := c.usable("track"); err != nil {
		return TrackResult{}, ignoreNotInitialized(err)
	}
	return c.strategy.track(ctx, ev)
}

// TrackBatch sends events as one request, bypassing the queue. An empty
// slice sends nothing.
func (c *Client) TrackBatch(ctx context.Context, events []Event) (TrackResult, error) {
	if err := c.usable("track_batch"); err != nil {
		return TrackResult{}, ignoreNotInitialized(err)
	}
	if len(events) == 0 {
		return TrackResult{}, nil
	}
	return c.strategy.trackBatch(ctx, events)
}

// Identify binds the device to a user.
//
// A blank user id returns ErrEmptyUserID without any I/O. In a browser the
// user id is persisted before the request, and first/last touch campaign
// parameters are merged into UserPropertyOps the first time this user is
// identified in the session: initial_<param> under $set_once and
// last_<param> under $set, never overriding keys the caller set.
func (c *Client) Identify(ctx context.Context, params IdentifyParams) (IdentifyResult, error) {
	params.UserID = strings.TrimSpace(params.UserID)
	if params.UserID == "" {
		return IdentifyResult{}, ErrEmptyUserID
	}
	if err := c.usable("identify"); err != nil {
		return IdentifyResult{}, ignoreNotInitialized(err)
	}

	result, err := c.strategy.identify(ctx, params)
	if err != nil {
		return IdentifyResult{}, err
	}
	c.counter("weblytics.identify.sent", 1)
	return result, nil
}

// Flush sends everything queued and waits for the result. Concurrent
// flushes share one request. It returns the number of events accepted;
// on a server it is a no-op.
func (c *Client) Flush(ctx context.Context) (int, error) {
	if err := c.usable("flush"); err != nil {
		return 0, ignoreNotInitialized(err)
	}
	return c.strategy.flush(ctx)
}

// Reset forgets the user: a new device id and session are created, the
// user id and attribution are cleared, and queued events are dropped.
func (c *Client) Reset() {
	if !c.lifecycle.IsActive() {
		return
	}
	c.lifecycle.RecordActivity()
	c.strategy.reset()
	c.logDebug("client reset")
}

// Query runs an analytics query. The result holds JSON or text depending
// on the response content type.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	if strings.TrimSpace(req.Q) == "" {
		return nil, NewValidationError("q", "must not be empty")
	}
	if err := c.usable("query"); err != nil {
		if errors.Is(err, ErrNotInitialized) {
			return &QueryResult{}, nil
		}
		return nil, err
	}
	return c.transport.Query(ctx, req)
}

// DeviceID returns the device id, or "" on a server.
func (c *Client) DeviceID() string { return c.strategy.deviceID() }

// UserID returns the identified user id, or "".
func (c *Client) UserID() string { return c.strategy.userID() }

// SessionID returns the current session id, or "" on a server.
func (c *Client) SessionID() string { return c.strategy.sessionID() }

// Attribution returns the first and last touch campaign parameters seen
// in this session.
func (c *Client) Attribution() AttributionState { return c.strategy.attribution() }

// Buffered reports whether events are queued rather than sent immediately.
func (c *Client) Buffered() bool { return c.buffered }

// Shutdown stops listening for page lifecycle signals, delivers queued
// events and waits for outstanding requests. It is bounded by ctx and
// Config.ShutdownTimeout. Later calls return ErrClientClosed.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.lifecycle.BeginShutdown(); err != nil {
		return ErrClientClosed
	}
	defer c.lifecycle.CompleteShutdown()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.config.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := c.strategy.close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("final flush: %w", err))
	}
	if err := c.transport.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("pending requests: %w", err))
	}
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.config.Metrics != nil {
		c.config.Metrics.RecordDuration("weblytics.shutdown.duration", time.Since(start))
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.logWarn("shutdown completed with errors", "error", err)
		return err
	}
	c.logInfo("shutdown complete", "duration", time.Since(start).String())
	return nil
}

// Close is Shutdown.
func (c *Client) Close(ctx context.Context) error {
	return c.Shutdown(ctx)
}

// usable rejects calls on a closed or uninitialized client.
func (c *Client) usable(op string) error {
	if !c.lifecycle.IsActive() {
		return ErrClientClosed
	}
	c.lifecycle.RecordActivity()
	if !c.transport.Configured() {
		c.logWarn("client not initialized, call ignored", "operation", op)
		return ErrNotInitialized
	}
	return nil
}

// ignoreNotInitialized turns the uninitialized guard into a silent no-op.
func ignoreNotInitialized(err error) error {
	if errors.Is(err, ErrNotInitialized) {
		return nil
	}
	return err
}

func (c *Client) headers() map[string]string {
	if c.strategy == nil {
		return nil
	}
	return c.strategy.headers()
}

// handleError reports an asynchronous delivery error nobody is waiting for.
func (c *Client) handleError(err error) {
	handled := false

	if c.config.ErrorHandler != nil {
		c.config.ErrorHandler(err)
		handled = true
	}
	if c.config.StructuredLogger != nil {
		c.config.StructuredLogger.Error("async delivery error", "error", err)
		handled = true
	}
	c.counter("weblytics.errors", 1)

	if !handled {
		stderrLogger.Printf("unhandled async error: %v", err)
	}
}

func (c *Client) onBreakerChange(from, to transport.BreakerState) {
	c.logWarn("circuit breaker state changed", "from", from.String(), "to", to.String())
	if to == transport.BreakerOpen {
		c.counter("weblytics.circuit.opened", 1)
	}
}

func (c *Client) counter(name string, v int64) {
	if c.config.Metrics != nil {
		c.config.Metrics.IncrementCounter(name, v)
	}
}

func (c *Client) logDebug(msg string, args ...any) {
	if c.config.StructuredLogger != nil {
		c.config.StructuredLogger.Debug(msg, args...)
	}
}

func (c *Client) logInfo(msg string, args ...any) {
	if c.config.StructuredLogger != nil {
		c.config.StructuredLogger.Info(msg, args...)
	}
}

func (c *Client) logWarn(msg string, args ...any) {
	if c.config.StructuredLogger != nil {
		c.config.StructuredLogger.Warn(msg, args...)
	}
}
