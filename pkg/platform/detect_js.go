//go:build js && wasm

package platform

import (
	"sync"
	"syscall/js"

	"github.com/jdziat/weblytics-go/pkg/storage"
)

// Detect returns a browser environment when window and document exist,
// and a server environment otherwise (e.g. wasm under Node.js).
func Detect() Environment {
	if !isBrowser() {
		return Server()
	}
	return Environment{
		Browser:   true,
		Durable:   storage.LocalStorage(),
		Session:   storage.SessionStorage(),
		Location:  locationHref,
		Locale:    navigatorLanguage,
		Timezone:  intlTimezone,
		Lifecycle: &pageLifecycle{},
	}.Normalize()
}

func isBrowser() bool {
	window := js.Global().Get("window")
	document := js.Global().Get("document")
	return window.Truthy() && document.Truthy()
}

func locationHref() string {
	href := js.Global().Get("location").Get("href")
	if href.Type() != js.TypeString {
		return ""
	}
	return href.String()
}

func navigatorLanguage() string {
	lang := js.Global().Get("navigator").Get("language")
	if lang.Type() != js.TypeString {
		return ""
	}
	return lang.String()
}

func intlTimezone() string {
	intl := js.Global().Get("Intl")
	if !intl.Truthy() {
		return ""
	}
	tz := intl.Call("DateTimeFormat").Call("resolvedOptions").Get("timeZone")
	if tz.Type() != js.TypeString {
		return ""
	}
	return tz.String()
}

// pageLifecycle maps visibilitychange and pagehide to Signals.
type pageLifecycle struct {
	mu sync.Mutex
}

func (p *pageLifecycle) Subscribe(fn func(Signal)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	document := js.Global().Get("document")
	window := js.Global().Get("window")

	onVisibility := js.FuncOf(func(this js.Value, args []js.Value) any {
		if document.Get("visibilityState").String() == "hidden" {
			fn(SignalHidden)
		}
		return nil
	})
	onPageHide := js.FuncOf(func(this js.Value, args []js.Value) any {
		fn(SignalUnload)
		return nil
	})

	document.Call("addEventListener", "visibilitychange", onVisibility)
	window.Call("addEventListener", "pagehide", onPageHide)

	var once sync.Once
	return func() {
		once.Do(func() {
			document.Call("removeEventListener", "visibilitychange", onVisibility)
			window.Call("removeEventListener", "pagehide", onPageHide)
			onVisibility.Release()
			onPageHide.Release()
		})
	}
}
