package feedback

import "sync"

// Mock implements Notifier for testing.
// It records every Start and Stop call for verification.
type Mock struct {
	mu     sync.Mutex
	starts []Request
	stops  int
}

// NewMock creates a new mock notifier.
func NewMock() *Mock {
	return &Mock{}
}

// Start records the request.
func (m *Mock) Start(req Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts = append(m.starts, req)
}

// Stop records the call.
func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
}

// Starts returns a copy of the recorded start requests.
func (m *Mock) Starts() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.starts))
	copy(out, m.starts)
	return out
}

// StartCount returns the number of Start calls.
func (m *Mock) StartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.starts)
}

// StopCount returns the number of Stop calls.
func (m *Mock) StopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stops
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts = nil
	m.stops = 0
}
