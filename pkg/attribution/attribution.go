// Package attribution captures marketing campaign parameters from the page
// URL and merges them into identify calls exactly once per user.
//
// Two snapshots are kept in session storage. First touch is written the
// first time any tracked parameter is seen in the session and is never
// overwritten afterwards. Last touch is replaced every time the location
// carries tracked parameters.
package attribution

import (
	"encoding/json"
	"maps"
	"net/url"
	"sync"

	"github.com/jdziat/weblytics-go/pkg/storage"
	"github.com/jdziat/weblytics-go/pkg/types"
)

// Session storage keys.
const (
	KeyFirstTouch = "wl_attr_first"
	KeyLastTouch  = "wl_attr_last"
	KeySynced     = "wl_attr_synced"
)

// Property prefixes used when merging into identify operations.
const (
	InitialPrefix = "initial_"
	LastPrefix    = "last_"
)

// Keys is the fixed set of tracked query parameters, in merge order.
var Keys = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
	"gclid",
	"fbclid",
}

// Params maps tracked parameter names to their values.
type Params map[string]string

// Snapshot is the pair of first and last touch parameters.
type Snapshot struct {
	First Params
	Last  Params
}

// IsEmpty reports whether neither touch has been recorded.
func (s Snapshot) IsEmpty() bool {
	return len(s.First) == 0 && len(s.Last) == 0
}

// Tracker reads and writes attribution state. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	session  storage.Storage
	location func() string
}

// New returns a Tracker over session storage. location returns the current
// page URL and may be nil when there is no page.
func New(session storage.Storage, location func() string) *Tracker {
	return &Tracker{
		session:  storage.Safe(session),
		location: location,
	}
}

// Capture reads tracked parameters from the current location. If any are
// present they become the last touch, and also the first touch when none
// has been recorded yet. Without new parameters it only returns the stored
// snapshot.
func (t *Tracker) Capture() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.loadLocked()
	found := Parse(t.currentLocation())
	if len(found) == 0 {
		return snap
	}

	snap.Last = found
	t.storeLocked(KeyLastTouch, found)
	if len(snap.First) == 0 {
		snap.First = maps.Clone(found)
		t.storeLocked(KeyFirstTouch, snap.First)
	}
	return snap
}

// Snapshot returns the stored attribution without reading the location.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadLocked()
}

// Synced reports whether attribution was already delivered for userID.
func (t *Tracker) Synced(userID string) bool {
	v, ok := storage.GetNonEmpty(t.session, KeySynced)
	return ok && v == userID
}

// Merge folds attribution into ops for userID. First touch values are added
// to $set_once as initial_<key>, last touch values to $set as last_<key>,
// skipping any key the caller already set in that category. Nothing is
// added when attribution was already synced for userID. The returned ops
// are a copy; the bool reports whether any attribution was added.
func (t *Tracker) Merge(userID string, ops *types.PropertyOps) (*types.PropertyOps, bool) {
	merged := ops.Clone()
	if t.Synced(userID) {
		return merged, false
	}

	snap := t.Capture()
	if snap.IsEmpty() {
		return merged, false
	}
	if merged == nil {
		merged = &types.PropertyOps{}
	}

	added := fill(&merged.SetOnce, InitialPrefix, snap.First)
	added = fill(&merged.Set, LastPrefix, snap.Last) || added
	if !added && ops == nil {
		return nil, false
	}
	return merged, added
}

// MarkSynced records that attribution for userID was accepted by the API.
func (t *Tracker) MarkSynced(userID string) {
	t.session.Set(KeySynced, userID)
}

// Clear removes all attribution state.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.session.Remove(KeyFirstTouch)
	t.session.Remove(KeyLastTouch)
	t.session.Remove(KeySynced)
}

// Parse extracts tracked parameters from rawURL. Empty values are ignored.
// Unparseable input yields nil.
func Parse(rawURL string) Params {
	if rawURL == "" {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	q := u.Query()

	var out Params
	for _, k := range Keys {
		if v := q.Get(k); v != "" {
			if out == nil {
				out = make(Params, len(Keys))
			}
			out[k] = v
		}
	}
	return out
}

func fill(dst *types.JSONObject, prefix string, src Params) bool {
	added := false
	for _, k := range Keys {
		v, ok := src[k]
		if !ok {
			continue
		}
		key := prefix + k
		if _, exists := (*dst)[key]; exists {
			continue
		}
		if *dst == nil {
			*dst = make(types.JSONObject)
		}
		(*dst)[key] = v
		added = true
	}
	return added
}

func (t *Tracker) currentLocation() (loc string) {
	if t.location == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			loc = ""
		}
	}()
	return t.location()
}

func (t *Tracker) loadLocked() Snapshot {
	return Snapshot{
		First: t.readLocked(KeyFirstTouch),
		Last:  t.readLocked(KeyLastTouch),
	}
}

func (t *Tracker) readLocked(key string) Params {
	raw, ok := storage.GetNonEmpty(t.session, key)
	if !ok {
		return nil
	}
	var p Params
	if err := json.Unmarshal([]byte(raw), &p); err != nil || len(p) == 0 {
		return nil
	}
	return p
}

func (t *Tracker) storeLocked(key string, p Params) {
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	t.session.Set(key, string(b))
}
