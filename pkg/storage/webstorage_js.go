//go:build js && wasm

package storage

import (
	"syscall/js"
)

// WebStorage adapts a browser Storage object (localStorage or
// sessionStorage) to the Storage interface.
type WebStorage struct {
	obj js.Value
}

// LocalStorage returns window.localStorage wrapped with Safe, or Nop when
// it is unavailable (disabled storage, sandboxed iframe, non-browser host).
func LocalStorage() Storage {
	return webStorage("localStorage")
}

// SessionStorage returns window.sessionStorage wrapped with Safe, or Nop
// when it is unavailable.
func SessionStorage() Storage {
	return webStorage("sessionStorage")
}

func webStorage(name string) (s Storage) {
	defer func() {
		// Accessing the property itself throws when storage is blocked.
		if recover() != nil {
			s = Nop{}
		}
	}()
	obj := js.Global().Get(name)
	if !obj.Truthy() {
		return Nop{}
	}
	return Safe(&WebStorage{obj: obj})
}

// Get implements Storage.
func (w *WebStorage) Get(key string) (string, bool) {
	v := w.obj.Call("getItem", key)
	if v.IsNull() || v.IsUndefined() {
		return "", false
	}
	return v.String(), true
}

// Set implements Storage.
func (w *WebStorage) Set(key, value string) bool {
	w.obj.Call("setItem", key, value)
	return true
}

// Remove implements Storage.
func (w *WebStorage) Remove(key string) bool {
	w.obj.Call("removeItem", key)
	return true
}
