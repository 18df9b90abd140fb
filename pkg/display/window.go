// Package display renders published buffers. Window shows them in an
// OpenCV HighGUI window; Headless only keeps the latest one.
package display

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facecam/pkg/render"
	"github.com/teslashibe/go-facecam/pkg/stream"
)

// Key codes returned by WaitKey.
const (
	KeyNone   = -1
	KeyEscape = 27
	KeySpace  = 32
)

const (
	// pollDelay is how long each repaint waits for a key press (ms)
	pollDelay = 15

	placeholderWidth  = 320
	placeholderHeight = 240
)

var (
	textColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	pauseColor = color.RGBA{R: 255, G: 165, B: 0, A: 255}
)

// Window is a stream surface backed by a HighGUI window. The scheduler
// hands it buffers from its own goroutine; Run repaints from the UI
// thread.
type Window struct {
	title  string
	logger *slog.Logger

	mu    sync.Mutex
	buf   render.Buffer
	state stream.State
	hint  string
}

// NewWindow creates a window surface. Nothing is shown until Run.
func NewWindow(title string, logger *slog.Logger) *Window {
	if logger == nil {
		logger = slog.Default()
	}
	return &Window{
		title:  title,
		logger: logger.With("component", "display"),
		hint:   "space: start",
	}
}

// SetBuffer implements stream.Surface.
func (w *Window) SetBuffer(buf render.Buffer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = buf
}

// Clear implements stream.Clearer. The placeholder is shown until the
// next buffer arrives.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = render.Buffer{}
}

// SetState records the lifecycle state shown on the placeholder and the
// pause overlay. It never touches the buffer: state events arrive late,
// after the next session may already have published.
func (w *Window) SetState(s stream.State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = s
}

// SetHint sets the help text drawn on the placeholder.
func (w *Window) SetHint(hint string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hint = hint
}

// current returns what should be painted next.
func (w *Window) current() (render.Buffer, stream.State, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf, w.state, w.hint
}

// Run opens the window and repaints until ctx is done, the window is
// closed, or onKey returns false. onKey receives every key press.
func (w *Window) Run(ctx context.Context, onKey func(key int) bool) error {
	var win *gocv.Window
	mainMaybe(func() { win = gocv.NewWindow(w.title) })
	defer mainMaybe(func() { win.Close() })

	w.logger.Info("display window opened", "title", w.title)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		img := w.compose()

		key := KeyNone
		open := true
		mainMaybe(func() {
			win.IMShow(img)
			key = win.WaitKey(pollDelay)
			open = win.IsOpen()
		})
		img.Close()

		if !open {
			w.logger.Info("display window closed")
			return nil
		}
		if key != KeyNone && onKey != nil && !onKey(key) {
			return nil
		}
	}
}

// compose builds the Mat for the next repaint. Buffers are flipped back
// upright, so a vertically flipped (bottom-up) buffer displays correctly.
func (w *Window) compose() gocv.Mat {
	buf, state, hint := w.current()
	if buf.Empty() {
		return placeholder(state, hint)
	}

	src, err := gocv.NewMatFromBytes(buf.Height, buf.Width, gocv.MatTypeCV8UC3, buf.Pix)
	if err != nil {
		w.logger.Warn("invalid display buffer", "error", err)
		return placeholder(state, hint)
	}

	// src borrows buf.Pix; dst owns its pixels and outlives this call.
	var dst gocv.Mat
	if code, ok := buf.Flip.Code(); ok {
		dst = gocv.NewMat()
		gocv.Flip(src, &dst, code)
	} else {
		dst = src.Clone()
	}
	src.Close()

	if state == stream.Paused {
		gocv.PutText(&dst, "PAUSED", image.Pt(8, 20), gocv.FontHersheySimplex, 0.5, pauseColor, 1)
	}
	return dst
}

func placeholder(state stream.State, hint string) gocv.Mat {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), placeholderHeight, placeholderWidth, gocv.MatTypeCV8UC3)
	gocv.PutText(&img, state.String(), image.Pt(10, placeholderHeight/2-10), gocv.FontHersheySimplex, 0.6, textColor, 1)
	if hint != "" {
		gocv.PutText(&img, hint, image.Pt(10, placeholderHeight/2+16), gocv.FontHersheySimplex, 0.4, textColor, 1)
	}
	return img
}
