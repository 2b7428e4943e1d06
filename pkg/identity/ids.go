package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// IDLength is the length of generated device and session ids.
const IDLength = 24

var (
	// randRead is swapped in tests to exercise the fallback path.
	randRead = rand.Read

	fallbackCounter uint64

	cryptoFailures atomic.Int64
)

// NewID returns a 24-character lowercase hex id built from 12 random bytes.
// If the system entropy source fails it falls back to a timestamp and an
// atomic counter, keeping the same length and alphabet.
func NewID() string {
	var b [IDLength / 2]byte
	if _, err := randRead(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	cryptoFailures.Add(1)
	return fallbackID()
}

func fallbackID() string {
	counter := atomic.AddUint64(&fallbackCounter, 1)
	return fmt.Sprintf("%016x%08x", uint64(time.Now().UnixNano()), uint32(counter))
}

// CryptoFailureCount returns how many ids were produced by the fallback.
func CryptoFailureCount() int64 {
	return cryptoFailures.Load()
}

// IsValidID reports whether id has the shape of a generated id.
func IsValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
