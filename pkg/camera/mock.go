package camera

import (
	"sync"

	"github.com/teslashibe/go-facecam/pkg/frame"
)

// MockSource replays queued frames. Once the queue is empty it returns
// ErrFrameUnavailable, or ErrEndOfStream if Close was called.
type MockSource struct {
	mu       sync.Mutex
	frames   []*frame.Frame
	errs     []error
	reads    int
	releases int
	released bool
	closed   bool
}

// NewMockSource creates a source preloaded with frames.
func NewMockSource(frames ...*frame.Frame) *MockSource {
	return &MockSource{frames: frames}
}

// Push queues more frames.
func (m *MockSource) Push(frames ...*frame.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frames...)
}

// FailNext makes the next Read return err instead of a frame.
func (m *MockSource) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

// Close marks the end of the stream.
func (m *MockSource) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// Read implements Source.
func (m *MockSource) Read() (*frame.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.released {
		return nil, ErrEndOfStream
	}
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	if len(m.frames) == 0 {
		if m.closed {
			return nil, ErrEndOfStream
		}
		return nil, ErrFrameUnavailable
	}
	f := m.frames[0]
	m.frames = m.frames[1:]
	return f, nil
}

// Release implements Source.
func (m *MockSource) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	m.released = true
	return nil
}

// Reads returns the number of Read calls.
func (m *MockSource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Pending returns the number of queued frames not yet read.
func (m *MockSource) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// Released reports whether Release has been called.
func (m *MockSource) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// Releases returns the number of Release calls.
func (m *MockSource) Releases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases
}

// PatternSource generates frames with a bright square sliding across a
// dark background. It never runs out.
type PatternSource struct {
	mu       sync.Mutex
	width    int
	height   int
	tick     int
	released bool
}

// NewPatternSource creates a synthetic source of the given size.
func NewPatternSource(width, height int) *PatternSource {
	return &PatternSource{width: width, height: height}
}

// Read implements Source.
func (p *PatternSource) Read() (*frame.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return nil, ErrEndOfStream
	}

	f := frame.New(p.width, p.height)
	f.Fill(f.Bounds(), frame.BGR{B: 40, G: 30, R: 30})

	size := p.height / 3
	span := p.width - size
	if span < 1 {
		span = 1
	}
	x := (p.tick * 4) % span
	y := (p.height - size) / 2
	f.Fill(frame.Region{X: x, Y: y, Width: size, Height: size}.Rect(), frame.BGR{B: 200, G: 220, R: 235})

	p.tick++
	return f, nil
}

// Release implements Source.
func (p *PatternSource) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
	return nil
}
