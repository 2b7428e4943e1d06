// Package enrich completes raw events before they are queued or sent.
package enrich

import (
	"time"

	"github.com/google/uuid"

	"github.com/jdziat/weblytics-go/pkg/types"
)

// Auto-context property names.
const (
	PropCurrentURL = "$current_url"
	PropLocale     = "$locale"
	PropTimezone   = "$timezone"
)

// Identity supplies the ids stamped on browser events.
type Identity interface {
	DeviceID() string
	UserID() string
	Touch(now time.Time) string
}

// Context supplies optional page context. Any method may return "".
type Context interface {
	CurrentURL() string
	CurrentLocale() string
	CurrentTimezone() string
}

// Enricher fills identity, context, insert id and time on events.
// A nil Identity makes it a server enricher that only fills the insert id
// and the time.
type Enricher struct {
	identity Identity
	context  Context
	now      func() time.Time
	newID    func() string
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) { e.now = now }
}

// WithInsertIDGenerator overrides the UUID v4 insert id generator.
func WithInsertIDGenerator(gen func() string) Option {
	return func(e *Enricher) { e.newID = gen }
}

// NewBrowser returns an enricher for a browser context.
func NewBrowser(identity Identity, ctx Context, opts ...Option) *Enricher {
	e := &Enricher{identity: identity, context: ctx}
	return e.apply(opts)
}

// NewServer returns an enricher that only fills the insert id and the time.
func NewServer(opts ...Option) *Enricher {
	return (&Enricher{}).apply(opts)
}

func (e *Enricher) apply(opts []Option) *Enricher {
	for _, opt := range opts {
		opt(e)
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

// Browser reports whether events are marked client-originated.
func (e *Enricher) Browser() bool {
	return e.identity != nil
}

// Enrich returns a completed copy of ev. Fields set by the caller are never
// overwritten.
func (e *Enricher) Enrich(ev types.Event) types.Event {
	out := ev.Clone()
	now := e.now()

	if e.identity != nil {
		sessionID := e.identity.Touch(now)
		if out.DeviceID == "" {
			out.DeviceID = e.identity.DeviceID()
		}
		if out.UserID == "" {
			out.UserID = e.identity.UserID()
		}
		if out.SessionID == "" {
			out.SessionID = sessionID
		}
		out.EventProperties = e.withContext(out.EventProperties)
		out.ClientOriginated = true
	}

	if out.InsertID == "" {
		out.InsertID = e.newID()
	}
	if out.Time == "" {
		out.Time = types.FormatTime(now)
	}
	return out
}

// EnrichAll enriches each event in order.
func (e *Enricher) EnrichAll(events []types.Event) []types.Event {
	out := make([]types.Event, len(events))
	for i, ev := range events {
		out[i] = e.Enrich(ev)
	}
	return out
}

// withContext places auto-context under the caller's properties.
func (e *Enricher) withContext(props types.JSONObject) types.JSONObject {
	if e.context == nil {
		return props
	}
	auto := make(types.JSONObject, 3+len(props))
	if v := e.context.CurrentURL(); v != "" {
		auto[PropCurrentURL] = v
	}
	if v := e.context.CurrentLocale(); v != "" {
		auto[PropLocale] = v
	}
	if v := e.context.CurrentTimezone(); v != "" {
		auto[PropTimezone] = v
	}
	if len(auto) == 0 {
		return props
	}
	for k, v := range props {
		auto[k] = v
	}
	return auto
}
