package config

import (
	"os"
	"time"
)

// Environment variable names for configuration.
const (
	EnvAPIKey = "WEBLYTICS_API_KEY"
	EnvHost   = "WEBLYTICS_HOST"
	EnvDebug  = "WEBLYTICS_DEBUG"
	EnvConfig = "WEBLYTICS_CONFIG"
)

// GetEnvString returns the value of an environment variable or a default.
func GetEnvString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns true if the env var is "true" or "1".
func GetEnvBool(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1"
}

// GetEnvDuration parses a duration env var, returning defaultValue when
// it is unset or invalid.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
