// Package storage provides the best-effort key-value capability used for
// identity and attribution state.
//
// Every operation is infallible from the caller's point of view: a failing
// backend (quota exceeded, storage disabled, no browser) reads as absence and
// writes report false. Nothing here returns an error or panics.
package storage

import (
	"sync"
)

// Storage is a best-effort string key-value store.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)

	// Set stores value under key and reports whether the write succeeded.
	Set(key, value string) bool

	// Remove deletes key and reports whether the delete succeeded.
	Remove(key string) bool
}

// Nop is the Storage used when a capability is unavailable.
// Reads are always absent and writes always fail.
type Nop struct{}

// Get implements Storage.
func (Nop) Get(string) (string, bool) { return "", false }

// Set implements Storage.
func (Nop) Set(string, string) bool { return false }

// Remove implements Storage.
func (Nop) Remove(string) bool { return false }

// Memory is an in-process Storage. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

// Get implements Storage.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// Set implements Storage.
func (m *Memory) Set(key, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return true
}

// Remove implements Storage.
func (m *Memory) Remove(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return true
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Keys returns a snapshot of the stored keys.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}

// safe recovers from panics in the wrapped store.
type safe struct {
	inner Storage
}

// Safe wraps s so that a panicking backend reads as absence. A nil s
// yields Nop. Exceptions thrown by browser storage surface as Go panics
// through syscall/js, which is why WebStorage is always wrapped.
func Safe(s Storage) Storage {
	if s == nil {
		return Nop{}
	}
	if _, ok := s.(*safe); ok {
		return s
	}
	return &safe{inner: s}
}

func (s *safe) Get(key string) (value string, ok bool) {
	defer func() {
		if recover() != nil {
			value, ok = "", false
		}
	}()
	return s.inner.Get(key)
}

func (s *safe) Set(key, value string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return s.inner.Set(key, value)
}

func (s *safe) Remove(key string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return s.inner.Remove(key)
}

// GetNonEmpty returns the value for key, treating an empty string as absent.
func GetNonEmpty(s Storage, key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
