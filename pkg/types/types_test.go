package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEventWireFormat_OmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Event{EventType: "page_view"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"event_type":"page_view"}` {
		t.Errorf("Marshal = %s", data)
	}

	data, _ = json.Marshal(Event{EventType: "click", ClientOriginated: true, InsertID: "abc"})
	if !strings.Contains(string(data), `"clientOriginated":true`) {
		t.Errorf("expected clientOriginated in %s", data)
	}
	if !strings.Contains(string(data), `"insert_id":"abc"`) {
		t.Errorf("expected insert_id in %s", data)
	}
}

func TestEventClone_CopiesMaps(t *testing.T) {
	orig := Event{EventType: "x", EventProperties: JSONObject{"a": 1}}
	clone := orig.Clone()
	clone.EventProperties["a"] = 2

	if orig.EventProperties["a"] != 1 {
		t.Error("Clone should not share property maps")
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.FixedZone("X", 3600))
	if got := FormatTime(ts); got != "2026-03-04T04:06:07.890Z" {
		t.Errorf("FormatTime = %q", got)
	}
}

func TestPropertyOpsWireFormat(t *testing.T) {
	ops := &PropertyOps{
		Set:     JSONObject{"plan": "pro"},
		SetOnce: JSONObject{"initial_utm_source": "google"},
		Add:     map[string]float64{"logins": 1},
		Unset:   []string{"trial"},
	}
	data, err := json.Marshal(ops)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, key := range []string{OpSet, OpSetOnce, OpAdd, OpUnset} {
		if !strings.Contains(string(data), `"`+key+`"`) {
			t.Errorf("expected %s in %s", key, data)
		}
	}

	var empty *PropertyOps
	if !empty.IsEmpty() || !(&PropertyOps{}).IsEmpty() {
		t.Error("nil and zero ops should be empty")
	}
	if ops.IsEmpty() {
		t.Error("populated ops should not be empty")
	}
}

func TestPropertyOpsClone(t *testing.T) {
	ops := &PropertyOps{Set: JSONObject{"a": 1}, Unset: []string{"b"}}
	clone := ops.Clone()
	clone.Set["a"] = 2
	clone.Unset[0] = "c"

	if ops.Set["a"] != 1 || ops.Unset[0] != "b" {
		t.Error("Clone should be deep")
	}
	if (*PropertyOps)(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestIsJSONContentType(t *testing.T) {
	tests := map[string]bool{
		"application/json":                true,
		"application/json; charset=utf-8": true,
		"application/problem+json":        true,
		"text/plain":                      false,
		"text/csv; charset=utf-8":         false,
		"":                                false,
	}
	for ct, want := range tests {
		if got := IsJSONContentType(ct); got != want {
			t.Errorf("IsJSONContentType(%q) = %v, want %v", ct, got, want)
		}
	}
}

func TestQueryResultDecode(t *testing.T) {
	res := &QueryResult{ContentType: "application/json", JSON: json.RawMessage(`{"rows":3}`)}
	var out struct{ Rows int }
	if err := res.Decode(&out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.Rows != 3 {
		t.Errorf("Rows = %d, want 3", out.Rows)
	}

	text := &QueryResult{ContentType: "text/csv", Text: "a,b"}
	if err := text.Decode(&out); err == nil {
		t.Error("Decode of a text result should fail")
	}
}

func TestIntentTeardown(t *testing.T) {
	teardown := map[Intent]bool{
		IntentThreshold:        false,
		IntentTimer:            false,
		IntentRetry:            false,
		IntentManual:           false,
		IntentContinuation:     false,
		IntentVisibilityHidden: true,
		IntentPageUnload:       true,
	}
	for intent, want := range teardown {
		if got := intent.Teardown(); got != want {
			t.Errorf("%s.Teardown() = %v, want %v", intent, got, want)
		}
	}
}
