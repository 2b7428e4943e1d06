package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jdziat/weblytics-go"
	"github.com/jdziat/weblytics-go/pkg/config"
)

// globals are the flags accepted before the command.
type globals struct {
	configPath string
	host       string
	debug      bool
}

func parseGlobals(args []string) (globals, []string, error) {
	var g globals
	for len(args) > 0 {
		switch args[0] {
		case "--config", "-c":
			if len(args) < 2 {
				return g, nil, fmt.Errorf("%s requires a path", args[0])
			}
			g.configPath, args = args[1], args[2:]
		case "--host":
			if len(args) < 2 {
				return g, nil, errors.New("--host requires a URL")
			}
			g.host, args = args[1], args[2:]
		case "--debug":
			g.debug, args = true, args[1:]
		default:
			return g, args, nil
		}
	}
	return g, args, nil
}

// newClient builds a client from the configuration file, the environment
// and the flags, in increasing precedence.
func newClient(g globals) (*weblytics.Client, error) {
	opts := []weblytics.ConfigOption{weblytics.WithLabel("cli")}

	path := g.configPath
	if path == "" {
		path = config.FindFile()
	}
	if path != "" {
		fc, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, weblytics.WithFileConfig(fc))
	}

	if host := config.GetEnvString(config.EnvHost, ""); host != "" {
		opts = append(opts, weblytics.WithHost(host))
	}
	if config.GetEnvBool(config.EnvDebug) {
		opts = append(opts, weblytics.WithDebug(true))
	}
	if g.host != "" {
		opts = append(opts, weblytics.WithHost(g.host))
	}
	if g.debug {
		opts = append(opts, weblytics.WithDebug(true))
	}

	client, err := weblytics.New(config.GetEnvString(config.EnvAPIKey, ""), opts...)
	if err != nil {
		return nil, err
	}
	if !client.Initialized() {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("no API key: set %s or api_key in the configuration file", config.EnvAPIKey)
	}
	return client, nil
}
