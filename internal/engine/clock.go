package engine

import (
	"sync"
	"time"
)

// TimeProvider supplies the wall clock to the ticker.
type TimeProvider interface {
	Now() time.Time
}

// SystemTime reads the real clock.
type SystemTime struct{}

// Now returns time.Now().
func (SystemTime) Now() time.Time { return time.Now() }

// MockTimeProvider is a manually advanced clock for tests and simulations.
type MockTimeProvider struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockTimeProvider starts the clock at start.
func NewMockTimeProvider(start time.Time) *MockTimeProvider {
	return &MockTimeProvider{now: start}
}

// Now returns the current mock time.
func (m *MockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Set jumps the clock to t, which may be in the past.
func (m *MockTimeProvider) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}
