package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML configuration file. Zero values mean "not set".
//
//	api_key: ${WEBLYTICS_API_KEY}
//	host: https://api.weblytics.io
//	batch_size: 10
//	flush_interval: 2s
//	storage:
//	  path: ./weblytics.db
type FileConfig struct {
	APIKey         string        `yaml:"api_key"`
	Host           string        `yaml:"host"`
	Debug          bool          `yaml:"debug"`
	Environment    string        `yaml:"environment"`
	BatchSize      int           `yaml:"batch_size"`
	FlushInterval  time.Duration `yaml:"flush_interval"`
	QueueCapacity  int           `yaml:"queue_capacity"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	MaxRetryDelay  time.Duration `yaml:"max_retry_delay"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
	Timeout        time.Duration `yaml:"timeout"`
	Storage        StorageConfig `yaml:"storage"`
}

// StorageConfig selects durable storage for native hosts.
type StorageConfig struct {
	// Path is a SQLite database file holding the device and user ids.
	Path string `yaml:"path"`
}

// FileNames are the names searched by FindFile.
var FileNames = []string{
	".weblytics.yaml",
	".weblytics.yml",
}

// LoadFile reads and parses a YAML configuration file. ${VAR} references
// in api_key and host are expanded from the environment.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("weblytics: read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
func Parse(data []byte) (*FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("weblytics: parse config: %w", err)
	}
	cfg.APIKey = expandEnvVar(cfg.APIKey)
	cfg.Host = expandEnvVar(cfg.Host)
	cfg.Storage.Path = expandEnvVar(cfg.Storage.Path)
	return &cfg, nil
}

// FindFile returns the path named by WEBLYTICS_CONFIG, or searches the
// working directory and its parents for a FileNames entry. It returns ""
// when nothing is found.
func FindFile() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}

	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

var envVarPattern = regexp.MustCompile(`\$\{?([A-Za-z_][A-Za-z0-9_]*)\}?`)

// expandEnvVar expands ${VAR} and $VAR references.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "${")
		name = strings.TrimPrefix(name, "$")
		name = strings.TrimSuffix(name, "}")
		return os.Getenv(name)
	})
}
