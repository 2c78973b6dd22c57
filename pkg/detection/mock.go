package detection

import "sync"

// Mock implements Detector for testing and camera-less development.
// Frames returns a canned sequence; once exhausted, Detect returns nil.
type Mock struct {
	// DetectFunc is called when Detect is invoked. If nil, the canned
	// Frames sequence is consumed instead.
	DetectFunc func(jpeg []byte) ([]Detection, error)

	// Frames is the canned per-frame sequence.
	Frames [][]Detection

	mu   sync.Mutex
	next int
}

// NewMock creates a mock detector that replays the given frame sequence.
func NewMock(frames ...[]Detection) *Mock {
	return &Mock{Frames: frames}
}

// Detect returns the next canned frame, or calls DetectFunc if set.
func (m *Mock) Detect(jpeg []byte) ([]Detection, error) {
	if m.DetectFunc != nil {
		return m.DetectFunc(jpeg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.next >= len(m.Frames) {
		return nil, nil
	}
	frame := m.Frames[m.next]
	m.next++
	return frame, nil
}

// Close is a no-op.
func (m *Mock) Close() error {
	return nil
}
