// Package config holds the SDK's default values, environment variable names
// and the YAML configuration file format.
package config

import "time"

// DefaultHost is the collection API used when no host is configured.
const DefaultHost = "https://api.weblytics.io"

// Default configuration values.
const (
	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the queue length that triggers an immediate drain.
	DefaultBatchSize = 10

	// DefaultFlushInterval is the debounce delay after the first enqueue.
	DefaultFlushInterval = 2 * time.Second

	// DefaultQueueCapacity is the maximum number of buffered events.
	DefaultQueueCapacity = 500

	// DefaultMaxRetries is the number of retries before a batch is dropped.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the delay before the first retry.
	DefaultRetryBaseDelay = 1 * time.Second

	// DefaultMaxRetryDelay caps the exponential retry delay.
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultMaxJitter bounds the random delay added to each retry.
	DefaultMaxJitter = 250 * time.Millisecond

	// DefaultSessionTimeout is the idle period after which a session rotates.
	DefaultSessionTimeout = 30 * time.Minute

	// DefaultShutdownTimeout bounds the final flush on shutdown.
	DefaultShutdownTimeout = 35 * time.Second
)

// Bounds enforced by validation.
const (
	MaxBatchSize      = 1000
	MaxQueueCapacity  = 100000
	MaxMaxRetries     = 100
	MaxTimeout        = 10 * time.Minute
	MinFlushInterval  = 10 * time.Millisecond
	MinSessionTimeout = 1 * time.Minute
)
