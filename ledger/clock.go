package ledger

import (
	"sync"
	"time"

	"github.com/jathurchan/namereg/clock"
)

// monotonicClock stamps transactions. It never returns a time earlier than
// the last one it returned or observed, so ledger time cannot move
// backwards even if the wall clock does.
type monotonicClock struct {
	mu    sync.Mutex
	clock clock.Clock
	last  time.Time
}

func newMonotonicClock(c clock.Clock) *monotonicClock {
	return &monotonicClock{clock: c}
}

// Now returns the next transaction timestamp in UTC with the monotonic
// reading stripped, so it survives a journal round trip unchanged.
func (m *monotonicClock) Now() time.Time {
	now := m.clock.Now().Round(0).UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Before(m.last) {
		now = m.last
	}
	m.last = now
	return now
}

// observe raises the floor to t, used while replaying journaled timestamps.
func (m *monotonicClock) observe(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.After(m.last) {
		m.last = t
	}
}

// floor returns the latest time stamped or observed.
func (m *monotonicClock) floor() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// peek returns the current floor without stamping.
func (m *monotonicClock) peek() time.Time {
	now := m.clock.Now().Round(0).UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Before(m.last) {
		return m.last
	}
	return now
}
