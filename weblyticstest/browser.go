package weblyticstest

import (
	"sync"

	"github.com/jdziat/weblytics-go/pkg/platform"
	"github.com/jdziat/weblytics-go/pkg/storage"
)

// BrowserEnvironment is a fake page: two in-memory storages standing in for
// localStorage and sessionStorage, a settable location and hand-fired
// lifecycle signals.
type BrowserEnvironment struct {
	Durable *storage.Memory
	Session *storage.Memory
	Signals *platform.Signals

	mu       sync.Mutex
	location string
	locale   string
	timezone string
}

// NewBrowserEnvironment returns a page at location with locale "en-US" and
// timezone "UTC".
func NewBrowserEnvironment(location string) *BrowserEnvironment {
	return &BrowserEnvironment{
		Durable:  storage.NewMemory(),
		Session:  storage.NewMemory(),
		Signals:  platform.NewSignals(),
		location: location,
		locale:   "en-US",
		timezone: "UTC",
	}
}

// Navigate changes the current location.
func (b *BrowserEnvironment) Navigate(location string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.location = location
}

// SetLocale changes the reported locale and timezone.
func (b *BrowserEnvironment) SetLocale(locale, timezone string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.locale, b.timezone = locale, timezone
}

// Hide fires the visibility-hidden signal.
func (b *BrowserEnvironment) Hide() { b.Signals.Fire(platform.SignalHidden) }

// Unload fires the page-unload signal.
func (b *BrowserEnvironment) Unload() { b.Signals.Fire(platform.SignalUnload) }

// Environment returns the capability descriptor for weblytics.WithEnvironment.
func (b *BrowserEnvironment) Environment() platform.Environment {
	return platform.Environment{
		Browser:   true,
		Durable:   b.Durable,
		Session:   b.Session,
		Location:  b.get(&b.location),
		Locale:    b.get(&b.locale),
		Timezone:  b.get(&b.timezone),
		Lifecycle: b.Signals,
	}
}

func (b *BrowserEnvironment) get(field *string) func() string {
	return func() string {
		b.mu.Lock()
		defer b.mu.Unlock()
		return *field
	}
}
