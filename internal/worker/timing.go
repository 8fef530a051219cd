package worker

import (
	"sync"
	"time"
)

// timingMap tracks per-item processing start times. It is owned by one
// Worker instance so concurrent workers in the same process never share
// timing state.
type timingMap struct {
	mu     sync.Mutex
	starts map[string]time.Time
}

func newTimingMap() *timingMap {
	return &timingMap{starts: make(map[string]time.Time)}
}

func (m *timingMap) start(itemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts[itemID] = time.Now()
}

// elapsed returns the time since start was called for itemID, or zero when
// the item is unknown.
func (m *timingMap) elapsed(itemID string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.starts[itemID]
	if !ok {
		return 0
	}
	return time.Since(t)
}

func (m *timingMap) clear(itemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.starts, itemID)
}
