package detection

import (
	"sync"

	"github.com/teslashibe/go-facecam/pkg/frame"
)

// Mock implements Detector for testing.
type Mock struct {
	// DetectFunc is called when Detect is invoked.
	// If nil, Regions is returned.
	DetectFunc func(f *frame.Frame) ([]frame.Region, error)

	// Regions returned by every call when DetectFunc is nil.
	Regions []frame.Region

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewMock creates a detector that always reports regions.
func NewMock(regions ...frame.Region) *Mock {
	return &Mock{Regions: regions}
}

// Detect implements Detector.
func (m *Mock) Detect(f *frame.Frame) ([]frame.Region, error) {
	m.mu.Lock()
	m.calls++
	fn := m.DetectFunc
	regions := append([]frame.Region(nil), m.Regions...)
	m.mu.Unlock()

	if fn != nil {
		return fn(f)
	}
	return regions, nil
}

// Close implements Detector.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns the number of Detect calls.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
