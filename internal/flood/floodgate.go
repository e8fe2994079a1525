// Package flood rate-limits how often a single user's links get turned
// into summary cards.
package flood

import (
	"sync"
	"time"
)

const (
	// window is the sliding interval the per-user limit applies to.
	window = time.Minute
	// cleanupInterval is how often idle entries are swept.
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long an entry may sit unused before the sweep
	// removes it.
	idleTimeout = 10 * time.Minute
)

// Gate applies a per-user, per-chat sliding-window message limit.
type Gate struct {
	limit int

	mu      sync.Mutex
	entries map[string]*entry
	done    chan struct{}
}

type entry struct {
	seen     []time.Time
	lastSeen time.Time
}

// New creates a Gate allowing limit messages per user per minute.
func New(limit int) *Gate {
	g := &Gate{
		limit:   limit,
		entries: make(map[string]*entry),
		done:    make(chan struct{}),
	}
	go g.sweep()
	return g
}

// Stop terminates the background sweep.
func (g *Gate) Stop() {
	close(g.done)
}

// Allow reports whether a message from userID in chatID may be
// processed, and counts it when it may.
func (g *Gate) Allow(chatID, userID string) bool {
	key := chatID + ":" + userID
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if !ok {
		e = &entry{seen: make([]time.Time, 0, g.limit+1)}
		g.entries[key] = e
	}
	e.lastSeen = now

	cutoff := now.Add(-window)
	kept := e.seen[:0]
	for _, ts := range e.seen {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	e.seen = kept

	if len(e.seen) >= g.limit {
		return false
	}
	e.seen = append(e.seen, now)
	return true
}

// Limit returns the configured per-minute limit.
func (g *Gate) Limit() int {
	return g.limit
}

func (g *Gate) sweep() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-idleTimeout)
			g.mu.Lock()
			for key, e := range g.entries {
				if e.lastSeen.Before(cutoff) {
					delete(g.entries, key)
				}
			}
			g.mu.Unlock()
		case <-g.done:
			return
		}
	}
}
