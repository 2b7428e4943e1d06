// Package main provides the weblytics CLI for sending events and running
// queries against the collection API from scripts and shells.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jdziat/weblytics-go"
)

const timeout = 30 * time.Second

// errUsage is returned for malformed command lines.
var errUsage = errors.New("invalid usage")

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	g, args, err := parseGlobals(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "weblytics version %s\n", weblytics.Version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	case "track", "identify", "query":
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		printUsage(stderr)
		return 1
	}

	client, err := newClient(g)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	switch cmd {
	case "track":
		err = track(ctx, client, rest, stdout)
	case "identify":
		err = identify(ctx, client, rest, stdout)
	case "query":
		err = query(ctx, client, rest, stdout)
	}

	// Shutdown delivers anything buffered when a storage path is configured.
	if serr := client.Shutdown(ctx); serr != nil && err == nil {
		err = serr
	}
	if err != nil {
		if errors.Is(err, errUsage) {
			printUsage(stderr)
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `weblytics - send analytics events and run queries

Usage:
  weblytics [--config <file>] [--host <url>] [--debug] <command> [arguments]

Commands:
  track <event_type> [properties-json]   Send one event
  identify <user_id> [properties-json]   Bind user properties to a user
  query <q> [format]                     Run a query and print the result
  version                                Print version information
  help                                   Show this help message

Environment Variables:
  WEBLYTICS_API_KEY   API key (required)
  WEBLYTICS_HOST      Collection API base URL
  WEBLYTICS_DEBUG     Set to "true" to log requests to stderr
  WEBLYTICS_CONFIG    Path to a configuration file

Configuration:
  Create .weblytics.yaml in the working directory or a parent directory.
  Flags override environment variables, which override the file.`)
}
