package weblytics

import (
	"errors"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/jdziat/weblytics-go/pkg/config"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	if cfg.Host != DefaultHost {
		t.Errorf("Host = %q, want %q", cfg.Host, DefaultHost)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", cfg.BatchSize)
	}
	if cfg.FlushInterval != 2*time.Second {
		t.Errorf("FlushInterval = %v, want 2s", cfg.FlushInterval)
	}
	if cfg.QueueCapacity != 500 {
		t.Errorf("QueueCapacity = %d, want 500", cfg.QueueCapacity)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.MaxRetryDelay != 30*time.Second {
		t.Errorf("MaxRetryDelay = %v, want 30s", cfg.MaxRetryDelay)
	}
	if cfg.MaxJitter != 250*time.Millisecond {
		t.Errorf("MaxJitter = %v, want 250ms", cfg.MaxJitter)
	}
	if cfg.SessionTimeout != 30*time.Minute {
		t.Errorf("SessionTimeout = %v, want 30m", cfg.SessionTimeout)
	}
	if cfg.HTTPClient == nil || cfg.HTTPClient.Timeout != DefaultTimeout {
		t.Errorf("HTTPClient not defaulted with timeout %v", DefaultTimeout)
	}
	if cfg.StructuredLogger != nil {
		t.Error("StructuredLogger should stay nil without Logger or Debug")
	}
}

func TestConfigApplyDefaults_Loggers(t *testing.T) {
	t.Run("debug installs a logger", func(t *testing.T) {
		cfg := &Config{Debug: true}
		cfg.ApplyDefaults()
		if cfg.StructuredLogger == nil {
			t.Fatal("expected a debug logger")
		}
	})

	t.Run("printf logger is wrapped", func(t *testing.T) {
		cfg := &Config{Logger: NopLogger{}}
		cfg.ApplyDefaults()
		if _, ok := cfg.StructuredLogger.(*printfLoggerWrapper); !ok {
			t.Errorf("StructuredLogger = %T, want *printfLoggerWrapper", cfg.StructuredLogger)
		}
	})

	t.Run("explicit structured logger wins", func(t *testing.T) {
		cfg := &Config{Logger: NopLogger{}, StructuredLogger: NopLogger{}}
		cfg.ApplyDefaults()
		if _, ok := cfg.StructuredLogger.(NopLogger); !ok {
			t.Errorf("StructuredLogger = %T, want NopLogger", cfg.StructuredLogger)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "defaults are valid", modify: func(*Config) {}},
		{name: "no api key is valid", modify: func(c *Config) { c.APIKey = "" }},
		{name: "http host", modify: func(c *Config) { c.Host = "http://localhost:8080" }},
		{name: "relative host", modify: func(c *Config) { c.Host = "/api" }, wantErr: ErrInvalidHost},
		{name: "ftp host", modify: func(c *Config) { c.Host = "ftp://example.com" }, wantErr: ErrInvalidHost},
		{name: "zero batch size", modify: func(c *Config) { c.BatchSize = -1 }, wantErr: ErrInvalidConfig},
		{name: "batch too large", modify: func(c *Config) { c.BatchSize = pkgconfig.MaxBatchSize + 1 }, wantErr: ErrInvalidConfig},
		{name: "capacity below batch", modify: func(c *Config) { c.BatchSize = 50; c.QueueCapacity = 20 }, wantErr: ErrInvalidConfig},
		{name: "negative retries", modify: func(c *Config) { c.MaxRetries = -1 }, wantErr: ErrInvalidConfig},
		{name: "flush interval too short", modify: func(c *Config) { c.FlushInterval = time.Millisecond }, wantErr: ErrInvalidConfig},
		{name: "base delay above max", modify: func(c *Config) { c.RetryBaseDelay = time.Minute }, wantErr: ErrInvalidConfig},
		{name: "short session timeout", modify: func(c *Config) { c.SessionTimeout = time.Second }, wantErr: ErrInvalidConfig},
		{name: "timeout too long", modify: func(c *Config) { c.Timeout = time.Hour }, wantErr: ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{APIKey: "key"}
			cfg.ApplyDefaults()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigString_MasksAPIKey(t *testing.T) {
	cfg := &Config{APIKey: "wl_live_1234567890abcdef"}
	cfg.ApplyDefaults()

	s := cfg.String()
	if strings.Contains(s, "1234567890") {
		t.Errorf("String() leaks the API key: %s", s)
	}
	if !strings.Contains(s, "cdef") {
		t.Errorf("String() = %s, want the last four characters", s)
	}
}

func TestConfigUserAgent(t *testing.T) {
	cfg := &Config{}
	if got, want := cfg.userAgent(), "weblytics-go/"+Version; got != want {
		t.Errorf("userAgent() = %q, want %q", got, want)
	}
	cfg.Label = "staging"
	if got := cfg.userAgent(); !strings.HasSuffix(got, " (staging)") {
		t.Errorf("userAgent() = %q, want label suffix", got)
	}
}

func TestWithFileConfig(t *testing.T) {
	fc, err := pkgconfig.Parse([]byte(`
api_key: file-key
host: https://collect.example.com/
environment: staging
batch_size: 25
flush_interval: 5s
queue_capacity: 250
max_retries: 5
session_timeout: 10m
storage:
  path: /tmp/weblytics.db
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cfg := &Config{}
	WithFileConfig(fc)(cfg)
	WithBatchSize(30)(cfg)

	if cfg.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file-key", cfg.APIKey)
	}
	if cfg.Host != "https://collect.example.com/" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.Label != "staging" {
		t.Errorf("Label = %q, want staging", cfg.Label)
	}
	if cfg.BatchSize != 30 {
		t.Errorf("BatchSize = %d, want later option to win", cfg.BatchSize)
	}
	if cfg.FlushInterval != 5*time.Second {
		t.Errorf("FlushInterval = %v, want 5s", cfg.FlushInterval)
	}
	if cfg.QueueCapacity != 250 || cfg.MaxRetries != 5 {
		t.Errorf("QueueCapacity/MaxRetries = %d/%d", cfg.QueueCapacity, cfg.MaxRetries)
	}
	if cfg.SessionTimeout != 10*time.Minute {
		t.Errorf("SessionTimeout = %v, want 10m", cfg.SessionTimeout)
	}
	if cfg.StoragePath != "/tmp/weblytics.db" {
		t.Errorf("StoragePath = %q", cfg.StoragePath)
	}

	t.Run("explicit api key is kept", func(t *testing.T) {
		cfg := &Config{APIKey: "explicit"}
		WithFileConfig(fc)(cfg)
		if cfg.APIKey != "explicit" {
			t.Errorf("APIKey = %q, want explicit", cfg.APIKey)
		}
	})

	t.Run("nil file config", func(t *testing.T) {
		cfg := &Config{Host: "https://a.example.com"}
		WithFileConfig(nil)(cfg)
		if cfg.Host != "https://a.example.com" {
			t.Errorf("Host changed to %q", cfg.Host)
		}
	})
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvHost, "https://env.example.com")
	t.Setenv(EnvDebug, "")

	client, err := NewFromEnv(WithStructuredLogger(NopLogger{}))
	if err != nil {
		t.Fatalf("NewFromEnv failed: %v", err)
	}
	defer client.Shutdown(t.Context())

	if !client.Initialized() {
		t.Error("client should be initialized from the environment")
	}
	if got := client.config.Host; got != "https://env.example.com" {
		t.Errorf("Host = %q", got)
	}
}

func TestNewFromEnv_NoKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvHost, "")

	client, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv without a key should succeed, got %v", err)
	}
	defer client.Shutdown(t.Context())

	if client.Initialized() {
		t.Error("client without a key should not be initialized")
	}
}

func TestNewWithConfig_Nil(t *testing.T) {
	if _, err := NewWithConfig(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewWithConfig(nil) = %v, want ErrInvalidConfig", err)
	}
}
