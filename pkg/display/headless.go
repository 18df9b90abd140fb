package display

import (
	"sync"

	"github.com/teslashibe/go-facecam/pkg/render"
)

// Headless is a surface without a window. It keeps the latest buffer and
// counts publishes.
type Headless struct {
	mu    sync.Mutex
	count int
	last  render.Buffer
}

// NewHeadless creates a headless surface.
func NewHeadless() *Headless {
	return &Headless{}
}

// SetBuffer implements stream.Surface.
func (h *Headless) SetBuffer(buf render.Buffer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.last = buf
}

// Clear implements stream.Clearer. The publish count is kept.
func (h *Headless) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = render.Buffer{}
}

// Count returns the number of buffers received.
func (h *Headless) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Last returns the most recent buffer.
func (h *Headless) Last() render.Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}
