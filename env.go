package weblytics

import (
	pkgconfig "github.com/jdziat/weblytics-go/pkg/config"
)

// Environment variable names, re-exported from pkg/config.
const (
	EnvAPIKey = pkgconfig.EnvAPIKey
	EnvHost   = pkgconfig.EnvHost
	EnvDebug  = pkgconfig.EnvDebug
	EnvConfig = pkgconfig.EnvConfig
)

// NewFromEnv creates a client from WEBLYTICS_API_KEY and, when set,
// WEBLYTICS_HOST and WEBLYTICS_DEBUG. Explicit options override the
// environment. A missing API key is not an error: the client stays inert
// until Init is called.
//
//	client, err := weblytics.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(context.Background())
func NewFromEnv(opts ...ConfigOption) (*Client, error) {
	envOpts := make([]ConfigOption, 0, 2+len(opts))
	if host := pkgconfig.GetEnvString(EnvHost, ""); host != "" {
		envOpts = append(envOpts, WithHost(host))
	}
	if pkgconfig.GetEnvBool(EnvDebug) {
		envOpts = append(envOpts, WithDebug(true))
	}
	return New(pkgconfig.GetEnvString(EnvAPIKey, ""), append(envOpts, opts...)...)
}
