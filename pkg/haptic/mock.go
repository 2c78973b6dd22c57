package haptic

import (
	"sync"
	"time"
)

// Mock implements Driver for testing, recording every pulse.
type Mock struct {
	mu     sync.Mutex
	pulses []time.Duration
}

// NewMock creates a new mock driver.
func NewMock() *Mock {
	return &Mock{}
}

// Pulse records the call.
func (m *Mock) Pulse(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pulses = append(m.pulses, d)
	return nil
}

// Close is a no-op.
func (m *Mock) Close() error {
	return nil
}

// PulseCount returns the number of recorded pulses.
func (m *Mock) PulseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pulses)
}
