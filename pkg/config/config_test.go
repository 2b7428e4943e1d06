package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConstants(t *testing.T) {
	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"DefaultHost", DefaultHost, "https://api.weblytics.io"},
		{"DefaultTimeout", DefaultTimeout, 30 * time.Second},
		{"DefaultBatchSize", DefaultBatchSize, 10},
		{"DefaultFlushInterval", DefaultFlushInterval, 2 * time.Second},
		{"DefaultQueueCapacity", DefaultQueueCapacity, 500},
		{"DefaultMaxRetries", DefaultMaxRetries, 3},
		{"DefaultRetryBaseDelay", DefaultRetryBaseDelay, 1 * time.Second},
		{"DefaultMaxRetryDelay", DefaultMaxRetryDelay, 30 * time.Second},
		{"DefaultMaxJitter", DefaultMaxJitter, 250 * time.Millisecond},
		{"DefaultSessionTimeout", DefaultSessionTimeout, 30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestGetEnvString(t *testing.T) {
	t.Setenv("WEBLYTICS_TEST_STRING", "from_env")

	if got := GetEnvString("WEBLYTICS_TEST_STRING", "default"); got != "from_env" {
		t.Errorf("GetEnvString() = %q, want from_env", got)
	}
	if got := GetEnvString("WEBLYTICS_TEST_STRING_UNSET", "default"); got != "default" {
		t.Errorf("GetEnvString() = %q, want default", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"0", false},
		{"yes", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("WEBLYTICS_TEST_BOOL", tt.value)
			if got := GetEnvBool("WEBLYTICS_TEST_BOOL"); got != tt.want {
				t.Errorf("GetEnvBool(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("WEBLYTICS_TEST_DUR", "750ms")
	if got := GetEnvDuration("WEBLYTICS_TEST_DUR", time.Second); got != 750*time.Millisecond {
		t.Errorf("GetEnvDuration() = %v, want 750ms", got)
	}

	t.Setenv("WEBLYTICS_TEST_DUR", "soon")
	if got := GetEnvDuration("WEBLYTICS_TEST_DUR", time.Second); got != time.Second {
		t.Errorf("GetEnvDuration() = %v, want default on invalid value", got)
	}
}

func TestParse(t *testing.T) {
	t.Setenv("WL_TEST_KEY", "secret-key")

	cfg, err := Parse([]byte(`
api_key: ${WL_TEST_KEY}
host: https://collect.example.com/
debug: true
environment: staging
batch_size: 25
flush_interval: 500ms
queue_capacity: 1000
max_retries: 5
retry_base_delay: 2s
max_retry_delay: 1m
session_timeout: 45m
timeout: 10s
storage:
  path: /var/lib/app/weblytics.db
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.APIKey != "secret-key" {
		t.Errorf("APIKey = %q, want expanded env value", cfg.APIKey)
	}
	if cfg.Host != "https://collect.example.com/" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if !cfg.Debug || cfg.Environment != "staging" {
		t.Errorf("Debug/Environment = %v/%q", cfg.Debug, cfg.Environment)
	}
	if cfg.BatchSize != 25 || cfg.QueueCapacity != 1000 || cfg.MaxRetries != 5 {
		t.Errorf("sizes = %d/%d/%d", cfg.BatchSize, cfg.QueueCapacity, cfg.MaxRetries)
	}
	if cfg.FlushInterval != 500*time.Millisecond || cfg.RetryBaseDelay != 2*time.Second ||
		cfg.MaxRetryDelay != time.Minute || cfg.SessionTimeout != 45*time.Minute || cfg.Timeout != 10*time.Second {
		t.Errorf("durations not parsed: %+v", cfg)
	}
	if cfg.Storage.Path != "/var/lib/app/weblytics.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("batch_size: [oops"))
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Errorf("Parse() error = %v, want parse error", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".weblytics.yaml")
	if err := os.WriteFile(path, []byte("api_key: k\nbatch_size: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.APIKey != "k" || cfg.BatchSize != 3 {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFile() should fail for a missing file")
	}
}

func TestFindFile(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/weblytics.yaml")
	if got := FindFile(); got != "/etc/weblytics.yaml" {
		t.Errorf("FindFile() = %q, want env override", got)
	}

	t.Setenv(EnvConfig, "")
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, ".weblytics.yml")
	if err := os.WriteFile(want, []byte("host: x\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	got := FindFile()
	gotEval, _ := filepath.EvalSymlinks(got)
	wantEval, _ := filepath.EvalSymlinks(want)
	if gotEval != wantEval {
		t.Errorf("FindFile() = %q, want %q", got, want)
	}
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("WL_A", "alpha")
	tests := map[string]string{
		"":             "",
		"plain":        "plain",
		"${WL_A}":      "alpha",
		"$WL_A-suffix": "alpha-suffix",
		"${WL_UNSET}x": "x",
	}
	for in, want := range tests {
		if got := expandEnvVar(in); got != want {
			t.Errorf("expandEnvVar(%q) = %q, want %q", in, got, want)
		}
	}
}
