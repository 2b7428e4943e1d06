package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Q      string `json:"q"`
	Format string `json:"format,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// QueryResult holds a /query response. JSON is set when the response
// content type is JSON, Text otherwise.
type QueryResult struct {
	ContentType string
	JSON        json.RawMessage
	Text        string
}

// IsJSON reports whether the response was JSON.
func (r *QueryResult) IsJSON() bool {
	return r.JSON != nil
}

// Decode unmarshals a JSON result into v.
func (r *QueryResult) Decode(v any) error {
	if !r.IsJSON() {
		return fmt.Errorf("weblytics: query result is %q, not JSON", r.ContentType)
	}
	return json.Unmarshal(r.JSON, v)
}

// IsJSONContentType reports whether a Content-Type header names JSON.
func IsJSONContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}
