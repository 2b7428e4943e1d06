// Package identity maintains the device, user and session identifiers of a
// browser context.
//
// The state lives in two storages shared with any other SDK loaded into the
// same page: durable storage (localStorage) holds the device and user ids,
// session storage (sessionStorage) holds the session id and the last
// activity timestamp. Accessors re-read storage so that writes made by a
// sibling SDK are observed. When a storage is unavailable the Store keeps
// working from its in-memory copy.
package identity

import (
	"strconv"
	"sync"
	"time"

	"github.com/jdziat/weblytics-go/pkg/storage"
)

// Storage keys shared with other SDKs in the same browser context.
const (
	KeyDeviceID     = "wl_did"
	KeyUserID       = "wl_uid"
	KeySessionID    = "wl_sid"
	KeyLastActivity = "wl_sts"
)

// DefaultSessionTimeout is the idle period after which a session rotates.
const DefaultSessionTimeout = 30 * time.Minute

// Metrics is the subset of the SDK metrics interface used here.
type Metrics interface {
	IncrementCounter(name string, value int64)
}

// Config configures a Store.
type Config struct {
	// Durable holds the device and user ids.
	Durable storage.Storage

	// Session holds the session id and last activity timestamp.
	Session storage.Storage

	// SessionTimeout defaults to DefaultSessionTimeout.
	SessionTimeout time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	// Metrics is optional.
	Metrics Metrics
}

// Store is the identity state machine. It is safe for concurrent use.
type Store struct {
	durable storage.Storage
	session storage.Storage
	timeout time.Duration
	now     func() time.Time
	metrics Metrics

	mu           sync.Mutex
	deviceID     string
	userID       string
	sessionID    string
	lastActivity time.Time

	// Whether the cached value was written through to storage. A persisted
	// value that later reads as absent was removed by someone else.
	devicePersisted bool
	userPersisted   bool
	sessionPersist  bool
}

// New loads identity from storage, creating and persisting whatever is
// missing. A stored session is resumed only if it has not been idle for
// longer than the session timeout.
func New(cfg Config) *Store {
	s := &Store{
		durable: storage.Safe(cfg.Durable),
		session: storage.Safe(cfg.Session),
		timeout: cfg.SessionTimeout,
		now:     cfg.Now,
		metrics: cfg.Metrics,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultSessionTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := storage.GetNonEmpty(s.durable, KeyDeviceID); ok {
		s.deviceID = id
		s.devicePersisted = true
	} else {
		s.newDeviceLocked()
	}

	if uid, ok := storage.GetNonEmpty(s.durable, KeyUserID); ok {
		s.userID = uid
		s.userPersisted = true
	}

	now := s.now()
	sid, hasSID := storage.GetNonEmpty(s.session, KeySessionID)
	last, hasLast := s.storedActivityLocked()
	if hasSID && hasLast && !s.expired(last, now) {
		s.sessionID = sid
		s.lastActivity = last
		s.sessionPersist = true
	} else {
		s.newSessionLocked(now)
	}
	return s
}

// GetDurable reads a key from durable storage.
func (s *Store) GetDurable(key string) (string, bool) { return s.durable.Get(key) }

// SetDurable writes a key to durable storage.
func (s *Store) SetDurable(key, value string) bool { return s.durable.Set(key, value) }

// GetSession reads a key from session storage.
func (s *Store) GetSession(key string) (string, bool) { return s.session.Get(key) }

// SetSession writes a key to session storage.
func (s *Store) SetSession(key, value string) bool { return s.session.Set(key, value) }

// RemoveSession deletes a key from session storage.
func (s *Store) RemoveSession(key string) bool { return s.session.Remove(key) }

// DeviceID returns the current device id. A value written by another SDK is
// adopted; if the stored id has been removed a new one is generated and
// persisted.
func (s *Store) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := storage.GetNonEmpty(s.durable, KeyDeviceID); ok {
		s.deviceID = id
		s.devicePersisted = true
		return id
	}
	if s.devicePersisted || s.deviceID == "" {
		s.newDeviceLocked()
	}
	return s.deviceID
}

// UserID returns the identified user id, or "" when anonymous.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uid, ok := storage.GetNonEmpty(s.durable, KeyUserID); ok {
		s.userID = uid
		s.userPersisted = true
		return uid
	}
	if s.userPersisted {
		s.userID = ""
		s.userPersisted = false
	}
	return s.userID
}

// SetUserID records userID and persists it to durable storage.
func (s *Store) SetUserID(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = userID
	s.userPersisted = s.durable.Set(KeyUserID, userID)
}

// SessionID returns the current session id without touching activity.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sid, ok := storage.GetNonEmpty(s.session, KeySessionID); ok {
		s.sessionID = sid
	}
	return s.sessionID
}

// LastActivity returns the time of the last recorded activity.
func (s *Store) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.storedActivityLocked(); ok {
		return last
	}
	return s.lastActivity
}

// Touch records activity at now and returns the session id to stamp on an
// event. The session rotates first if it has been idle longer than the
// timeout.
func (s *Store) Touch(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := s.lastActivity
	if stored, ok := s.storedActivityLocked(); ok {
		last = stored
	}
	if sid, ok := storage.GetNonEmpty(s.session, KeySessionID); ok {
		s.sessionID = sid
		s.sessionPersist = true
	} else if s.sessionPersist {
		// Removed externally; treat as a new session.
		s.newSessionLocked(now)
		return s.sessionID
	}

	if s.expired(last, now) {
		s.newSessionLocked(now)
		return s.sessionID
	}

	s.lastActivity = now
	s.session.Set(KeyLastActivity, formatMillis(now))
	return s.sessionID
}

// Reset forgets the user, starts a new session and assigns a new device id.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durable.Remove(KeyUserID)
	s.userID = ""
	s.userPersisted = false

	s.session.Remove(KeySessionID)
	s.session.Remove(KeyLastActivity)

	s.newDeviceLocked()
	s.newSessionLocked(s.now())
}

func (s *Store) newDeviceLocked() {
	s.deviceID = NewID()
	s.devicePersisted = s.durable.Set(KeyDeviceID, s.deviceID)
}

func (s *Store) newSessionLocked(now time.Time) {
	s.sessionID = NewID()
	s.lastActivity = now
	s.sessionPersist = s.session.Set(KeySessionID, s.sessionID)
	s.session.Set(KeyLastActivity, formatMillis(now))
	if s.metrics != nil {
		s.metrics.IncrementCounter("weblytics.session.started", 1)
	}
}

func (s *Store) storedActivityLocked() (time.Time, bool) {
	raw, ok := storage.GetNonEmpty(s.session, KeyLastActivity)
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (s *Store) expired(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > s.timeout
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
