// Package heartbeat tracks which users are currently active. Presence is in-memory and per process.
package heartbeat

import (
	"sort"
	"sync"
	"time"
)

// DefaultWindow is how long a user stays live after their last heartbeat.
const DefaultWindow = 60 * time.Second

// Presence is a live user as returned by GET /heartbeat/live/users.
type Presence struct {
	UserID   string    `json:"userId"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	LastSeen time.Time `json:"lastSeen"`
}

// Tracker records heartbeats. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]Presence
	nowF   func() time.Time
}

// NewTracker returns a Tracker with the given liveness window; non-positive uses DefaultWindow.
func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{window: window, seen: map[string]Presence{}, nowF: time.Now}
}

// Beat marks p.UserID as seen now.
func (t *Tracker) Beat(p Presence) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p.LastSeen = t.nowF().UTC()
	t.seen[p.UserID] = p
}

// Forget drops a user, e.g. on logout.
func (t *Tracker) Forget(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, userID)
}

// Live returns users seen within the window, most recent first, and prunes stale entries.
func (t *Tracker) Live() []Presence {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.nowF().UTC().Add(-t.window)
	out := make([]Presence, 0, len(t.seen))
	for id, p := range t.seen {
		if p.LastSeen.Before(cutoff) {
			delete(t.seen, id)
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out
}
