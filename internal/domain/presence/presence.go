// Package presence tracks which client sessions are currently active so the
// UI can show a live user count. A session is active while it keeps pinging;
// sessions that stay silent longer than the TTL are dropped on the next
// access.
package presence

import (
	"sync"
	"time"
)

// Default tracker configuration.
const (
	defaultTTL = 15 * time.Second
)

// Tracker holds last-seen timestamps per session id. Safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithTTL sets how long a session stays active after its last ping.
func WithTTL(ttl time.Duration) Option {
	return func(t *Tracker) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithClock sets the time source. Tests supply a fake clock.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates a Tracker with the given options.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		seen: make(map[string]time.Time),
		ttl:  defaultTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Ping marks the session active and returns the active count including it.
func (t *Tracker) Ping(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireLocked()
	t.seen[id] = t.now()
	return len(t.seen)
}

// Leave removes the session and returns the remaining active count.
func (t *Tracker) Leave(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireLocked()
	delete(t.seen, id)
	return len(t.seen)
}

// Count returns the number of currently active sessions.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireLocked()
	return len(t.seen)
}

// expireLocked drops sessions whose last ping is older than the TTL.
// Caller must hold mu.
func (t *Tracker) expireLocked() {
	cutoff := t.now().Add(-t.ttl)
	for id, last := range t.seen {
		if last.Before(cutoff) {
			delete(t.seen, id)
		}
	}
}
