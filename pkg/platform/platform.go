// Package platform describes the capabilities of the host the SDK runs in.
//
// The client selects its delivery strategy once, from an Environment, instead
// of probing the host ad hoc. Detect builds the descriptor for the current
// build target: in a js/wasm build running in a page it returns a browser
// environment backed by Web Storage, everywhere else a server environment.
package platform

import (
	"sync"

	"github.com/jdziat/weblytics-go/pkg/storage"
)

// Signal is a page lifecycle notification.
type Signal int

const (
	// SignalHidden fires when the page becomes hidden (tab switch, minimise).
	SignalHidden Signal = iota + 1

	// SignalUnload fires when the page is about to be torn down.
	SignalUnload
)

// String returns the signal name.
func (s Signal) String() string {
	switch s {
	case SignalHidden:
		return "hidden"
	case SignalUnload:
		return "unload"
	default:
		return "unknown"
	}
}

// Lifecycle delivers page lifecycle signals.
type Lifecycle interface {
	// Subscribe registers fn and returns a function that removes it.
	// fn must not block.
	Subscribe(fn func(Signal)) (unsubscribe func())
}

// Environment is the capability descriptor handed to the client.
// Nil fields mean the capability is unavailable.
type Environment struct {
	// Browser selects the buffered, identity-aware delivery strategy.
	Browser bool

	// Durable holds device and user ids (localStorage in a browser).
	Durable storage.Storage

	// Session holds session and attribution state (sessionStorage).
	Session storage.Storage

	// Location returns the current page URL.
	Location func() string

	// Locale returns the user's locale, e.g. "en-US".
	Locale func() string

	// Timezone returns the IANA timezone name, e.g. "Europe/Berlin".
	Timezone func() string

	// Lifecycle delivers hidden/unload signals.
	Lifecycle Lifecycle
}

// Server returns the environment for a non-browser host.
func Server() Environment {
	return Environment{Browser: false}.Normalize()
}

// Normalize fills unavailable capabilities with no-op implementations
// and wraps storages so they never panic.
func (e Environment) Normalize() Environment {
	e.Durable = storage.Safe(e.Durable)
	e.Session = storage.Safe(e.Session)
	if e.Lifecycle == nil {
		e.Lifecycle = NopLifecycle{}
	}
	return e
}

// CurrentURL returns the page URL or "" when unavailable.
func (e Environment) CurrentURL() string {
	return call(e.Location)
}

// CurrentLocale returns the locale or "" when unavailable.
func (e Environment) CurrentLocale() string {
	return call(e.Locale)
}

// CurrentTimezone returns the timezone or "" when unavailable.
func (e Environment) CurrentTimezone() string {
	return call(e.Timezone)
}

// call invokes an optional provider, treating a panic as absence.
func call(fn func() string) (s string) {
	if fn == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	return fn()
}

// NopLifecycle never fires.
type NopLifecycle struct{}

// Subscribe implements Lifecycle.
func (NopLifecycle) Subscribe(func(Signal)) func() { return func() {} }

// Signals is a Lifecycle fired by hand. Hosts that embed the SDK in a
// non-browser UI (and tests) use it to forward their own teardown events.
type Signals struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Signal)
}

// NewSignals returns an empty Signals hub.
func NewSignals() *Signals {
	return &Signals{subs: make(map[int]func(Signal))}
}

// Subscribe implements Lifecycle.
func (s *Signals) Subscribe(fn func(Signal)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Fire delivers sig to every subscriber.
func (s *Signals) Fire(sig Signal) {
	s.mu.Lock()
	fns := make([]func(Signal), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(sig)
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Signals) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
