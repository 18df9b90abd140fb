// Package render converts frames into buffers a display surface can show
// and into encoded still images for persistence.
package render

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-facecam/pkg/frame"
)

// FlipMode selects the mirroring applied before packing.
type FlipMode int

// Flip modes. Code returns the matching OpenCV flip code.
const (
	FlipNone FlipMode = iota
	FlipVertical
	FlipHorizontal
	FlipBoth
)

// Default flips. Live buffers are stored bottom row first, the layout
// texture-backed surfaces upload directly; snapshots are mirrored
// left-to-right and written top row first.
const (
	DefaultLiveFlip     = FlipVertical
	DefaultSnapshotFlip = FlipHorizontal
)

func (m FlipMode) String() string {
	switch m {
	case FlipNone:
		return "none"
	case FlipVertical:
		return "vertical"
	case FlipHorizontal:
		return "horizontal"
	case FlipBoth:
		return "both"
	}
	return fmt.Sprintf("FlipMode(%d)", int(m))
}

// Code returns the OpenCV flip code (0 vertical, 1 horizontal, -1 both).
// FlipNone has no OpenCV code and returns ok=false.
func (m FlipMode) Code() (code int, ok bool) {
	switch m {
	case FlipVertical:
		return 0, true
	case FlipHorizontal:
		return 1, true
	case FlipBoth:
		return -1, true
	}
	return 0, false
}

// ParseFlip parses "none", "vertical", "horizontal" or "both".
func ParseFlip(s string) (FlipMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return FlipNone, nil
	case "vertical", "v":
		return FlipVertical, nil
	case "horizontal", "h", "mirror":
		return FlipHorizontal, nil
	case "both":
		return FlipBoth, nil
	}
	return FlipNone, fmt.Errorf("render: unknown flip mode %q", s)
}

// ColorFormat tags the channel order of a Buffer.
type ColorFormat string

// FormatBGR is the only format produced: the capture order, unchanged.
const FormatBGR ColorFormat = "bgr"

// Buffer is a packed pixel payload ready for a display surface.
type Buffer struct {
	Width  int
	Height int
	Format ColorFormat
	Flip   FlipMode
	Pix    []byte
}

// Stride returns the number of bytes per row.
func (b Buffer) Stride() int {
	return b.Width * frame.BytesPerPixel
}

// Empty reports whether the buffer carries no pixels.
func (b Buffer) Empty() bool {
	return b.Width == 0 || b.Height == 0 || len(b.Pix) == 0
}

// Flip writes src mirrored according to mode into a new frame.
func Flip(src *frame.Frame, mode FlipMode) *frame.Frame {
	dst := frame.New(src.Width, src.Height)
	flipInto(dst.Pix, src, mode)
	return dst
}

// flipInto copies src into dst (same size) applying mode.
func flipInto(dst []byte, src *frame.Frame, mode FlipMode) {
	stride := src.Stride()
	h := src.Height
	for y := 0; y < h; y++ {
		sy := y
		if mode == FlipVertical || mode == FlipBoth {
			sy = h - 1 - y
		}
		srow := src.Pix[sy*stride : (sy+1)*stride]
		drow := dst[y*stride : (y+1)*stride]
		if mode == FlipHorizontal || mode == FlipBoth {
			w := src.Width
			for x := 0; x < w; x++ {
				si := (w - 1 - x) * frame.BytesPerPixel
				di := x * frame.BytesPerPixel
				drow[di], drow[di+1], drow[di+2] = srow[si], srow[si+1], srow[si+2]
			}
			continue
		}
		copy(drow, srow)
	}
}
