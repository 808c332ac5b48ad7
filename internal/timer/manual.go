package timer

import (
	"time"
)

// Manual is a deterministic Scheduler for tests. Time only moves when
// Advance is called and callbacks run on the caller's goroutine.
type Manual struct {
	now     time.Duration
	next    Token
	pending map[Token]manualEntry
}

type manualEntry struct {
	due time.Duration
	fn  func()
}

// NewManual creates a manual clock at time zero
func NewManual() *Manual {
	return &Manual{pending: make(map[Token]manualEntry)}
}

func (m *Manual) Schedule(delay time.Duration, fn func()) Token {
	if delay < 0 {
		delay = 0
	}
	m.next++
	m.pending[m.next] = manualEntry{due: m.now + delay, fn: fn}
	return m.next
}

func (m *Manual) Cancel(token Token) {
	delete(m.pending, token)
}

// Now returns the elapsed manual time
func (m *Manual) Now() time.Duration {
	return m.now
}

// Pending returns the number of armed callbacks
func (m *Manual) Pending() int {
	return len(m.pending)
}

// Armed reports whether token is still waiting to fire
func (m *Manual) Armed(token Token) bool {
	_, ok := m.pending[token]
	return ok
}

// Advance moves time forward by d, firing every callback that becomes due
// in deadline order. Callbacks scheduled while advancing fire too if they
// fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	target := m.now + d

	for {
		token, entry, ok := m.earliest(target)
		if !ok {
			break
		}
		delete(m.pending, token)
		m.now = entry.due
		entry.fn()
	}

	m.now = target
}

func (m *Manual) earliest(limit time.Duration) (Token, manualEntry, bool) {
	var (
		best      Token
		bestEntry manualEntry
		found     bool
	)
	for token, entry := range m.pending {
		if entry.due > limit {
			continue
		}
		if !found || entry.due < bestEntry.due || (entry.due == bestEntry.due && token < best) {
			best, bestEntry, found = token, entry, true
		}
	}
	return best, bestEntry, found
}
