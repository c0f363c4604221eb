// Package quota holds the in-process counters that cap external calls per period.
package quota

import (
	"log/slog"
	"sync"
)

// Counter names used by the pipeline.
const (
	Crawl      = "crawl"
	Generation = "generation"
)

// Manager tracks named counters against fixed limits. Counters reset only
// through ResetAll; nothing is persisted, so a restart starts from zero.
type Manager struct {
	mu     sync.Mutex
	limits map[string]int
	counts map[string]int
	logger *slog.Logger
}

// NewManager builds a manager with the given limits. A counter missing from
// limits is never granted.
func NewManager(limits map[string]int, logger *slog.Logger) *Manager {
	copied := make(map[string]int, len(limits))
	for name, limit := range limits {
		copied[name] = limit
	}
	return &Manager{
		limits: copied,
		counts: make(map[string]int, len(limits)),
		logger: logger,
	}
}

// TryConsume increments counter and returns true, or returns false with no
// side effect once the limit is reached.
func (m *Manager) TryConsume(counter string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit, ok := m.limits[counter]
	if !ok {
		m.warn("quota counter is not configured", "counter", counter)
		return false
	}
	if m.counts[counter] >= limit {
		return false
	}
	m.counts[counter]++
	return true
}

// Release returns one grant of counter taken by TryConsume for work that
// was not carried out. It never drops a counter below zero.
func (m *Manager) Release(counter string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.counts[counter] > 0 {
		m.counts[counter]--
	}
}

// ResetAll zeroes every counter.
func (m *Manager) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name := range m.counts {
		m.counts[name] = 0
	}
	if m.logger != nil {
		m.logger.Info("quota counters reset", "counters", len(m.limits))
	}
}

// Count returns the current value of counter.
func (m *Manager) Count(counter string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[counter]
}

// Limit returns the configured limit of counter, or zero.
func (m *Manager) Limit(counter string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limits[counter]
}

// Remaining returns how many grants are left for counter.
func (m *Manager) Remaining(counter string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if left := m.limits[counter] - m.counts[counter]; left > 0 {
		return left
	}
	return 0
}

func (m *Manager) warn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
