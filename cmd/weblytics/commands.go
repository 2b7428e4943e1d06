package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jdziat/weblytics-go"
)

// track sends one event: track <event_type> [properties-json].
func track(ctx context.Context, client *weblytics.Client, args []string, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("%w: track <event_type> [properties-json]", errUsage)
	}
	ev := weblytics.Event{EventType: args[0]}
	if len(args) == 2 {
		props, err := parseProperties(args[1])
		if err != nil {
			return err
		}
		ev.EventProperties = props
	}

	res, err := client.Track(ctx, ev)
	if err != nil {
		return fmt.Errorf("track failed: %w", err)
	}
	if res.Pending {
		fmt.Fprintln(out, "queued 1 event")
		return nil
	}
	fmt.Fprintf(out, "accepted %d event(s)\n", res.Accepted)
	return nil
}

// identify binds properties to a user: identify <user_id> [properties-json].
// The properties are sent under $set.
func identify(ctx context.Context, client *weblytics.Client, args []string, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: identify <user_id> [properties-json]", errUsage)
	}
	params := weblytics.IdentifyParams{UserID: args[0]}
	if len(args) == 2 {
		props, err := parseProperties(args[1])
		if err != nil {
			return err
		}
		params.UserPropertyOps = &weblytics.PropertyOps{Set: props}
	}

	res, err := client.Identify(ctx, params)
	if err != nil {
		return fmt.Errorf("identify failed: %w", err)
	}
	fmt.Fprintf(out, "identified %s (ok=%t)\n", params.UserID, res.OK)
	return nil
}

// query runs query <q> [format] and prints the response body.
func query(ctx context.Context, client *weblytics.Client, args []string, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: query <q> [format]", errUsage)
	}
	req := weblytics.QueryRequest{Q: args[0]}
	if len(args) == 2 {
		req.Format = args[1]
	}

	res, err := client.Query(ctx, req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if res.IsJSON() {
		var v any
		if err := res.Decode(&v); err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err = io.WriteString(out, res.Text)
	return err
}

func parseProperties(s string) (weblytics.JSONObject, error) {
	var props weblytics.JSONObject
	if err := json.Unmarshal([]byte(s), &props); err != nil {
		return nil, fmt.Errorf("properties must be a JSON object: %w", err)
	}
	return props, nil
}
