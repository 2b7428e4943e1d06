package types

import (
	"maps"
	"time"
)

// JSONObject is an alias for map[string]any, representing a JSON object.
type JSONObject = map[string]any

// TimeLayout is the ISO-8601 layout used for event timestamps
// (UTC, millisecond precision, "Z" suffix).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime formats t as an event timestamp.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Event is a single analytics event as sent to POST /track.
// Empty optional fields are omitted from the wire format.
type Event struct {
	EventType        string     `json:"event_type"`
	UserID           string     `json:"user_id,omitempty"`
	DeviceID         string     `json:"device_id,omitempty"`
	SessionID        string     `json:"session_id,omitempty"`
	Time             string     `json:"time,omitempty"`
	EventProperties  JSONObject `json:"event_properties,omitempty"`
	UserProperties   JSONObject `json:"user_properties,omitempty"`
	InsertID         string     `json:"insert_id,omitempty"`
	ClientOriginated bool       `json:"clientOriginated,omitempty"`
}

// Clone returns a copy of e whose property maps can be modified
// without affecting the original.
func (e Event) Clone() Event {
	out := e
	if e.EventProperties != nil {
		out.EventProperties = maps.Clone(e.EventProperties)
	}
	if e.UserProperties != nil {
		out.UserProperties = maps.Clone(e.UserProperties)
	}
	return out
}

// BatchRequest is the batch form of POST /track.
type BatchRequest struct {
	Events           []Event `json:"events"`
	ClientOriginated bool    `json:"clientOriginated,omitempty"`
}

// TrackResponse is the success body of POST /track.
// Accepted is nil when the API omits the count.
type TrackResponse struct {
	Accepted *int `json:"accepted,omitempty"`
}

// TrackResult is returned by Track and TrackBatch.
type TrackResult struct {
	// Accepted is the number of events the API accepted.
	Accepted int

	// Pending is true when the event was only queued locally and the count
	// has not been confirmed by the server.
	Pending bool
}
