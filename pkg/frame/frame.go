// Package frame defines the pixel grid and rectangle types shared by the
// capture, detection, annotation and rendering stages.
package frame

import (
	"fmt"
	"image"
	"image/color"
)

// BytesPerPixel is the number of bytes per pixel in a Frame (B, G, R).
const BytesPerPixel = 3

// BGR is a pixel color in capture order.
type BGR struct {
	B, G, R uint8
}

// RGBA converts the color to an opaque color.RGBA.
func (c BGR) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// Frame is a 3-channel image in B-G-R order, row-major, top row first.
// It implements draw.Image so generic drawing and scaling code can use it.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// New allocates a black frame of the given size.
func New(width, height int) *Frame {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// FromBGR wraps existing pixel data. The slice is not copied.
func FromBGR(width, height int, pix []byte) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame: invalid size %dx%d", width, height)
	}
	if len(pix) != width*height*BytesPerPixel {
		return nil, fmt.Errorf("frame: %d bytes for %dx%d, want %d",
			len(pix), width, height, width*height*BytesPerPixel)
	}
	return &Frame{Width: width, Height: height, Pix: pix}, nil
}

// Stride returns the number of bytes per row.
func (f *Frame) Stride() int {
	return f.Width * BytesPerPixel
}

// Empty reports whether the frame holds no pixels.
func (f *Frame) Empty() bool {
	return f == nil || f.Width == 0 || f.Height == 0 || len(f.Pix) == 0
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, Pix: pix}
}

// Offset returns the index of the first byte of pixel (x, y).
func (f *Frame) Offset(x, y int) int {
	return y*f.Stride() + x*BytesPerPixel
}

// BGRAt returns the pixel at (x, y). Out of bounds reads return black.
func (f *Frame) BGRAt(x, y int) BGR {
	if !(image.Point{X: x, Y: y}.In(f.Bounds())) {
		return BGR{}
	}
	i := f.Offset(x, y)
	return BGR{B: f.Pix[i], G: f.Pix[i+1], R: f.Pix[i+2]}
}

// SetBGR sets the pixel at (x, y). Out of bounds writes are ignored.
func (f *Frame) SetBGR(x, y int, c BGR) {
	if !(image.Point{X: x, Y: y}.In(f.Bounds())) {
		return
	}
	i := f.Offset(x, y)
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = c.B, c.G, c.R
}

// Fill paints r with c. The rectangle is clipped to the frame bounds, so
// callers may pass rectangles that extend past the edges.
func (f *Frame) Fill(r image.Rectangle, c BGR) {
	r = r.Canon().Intersect(f.Bounds())
	if r.Empty() {
		return
	}
	stride := f.Stride()
	row := f.Offset(r.Min.X, r.Min.Y)
	// Paint the first row, then copy it down.
	first := f.Pix[row : row+r.Dx()*BytesPerPixel]
	for i := 0; i < len(first); i += BytesPerPixel {
		first[i], first[i+1], first[i+2] = c.B, c.G, c.R
	}
	for y := r.Min.Y + 1; y < r.Max.Y; y++ {
		row += stride
		copy(f.Pix[row:row+len(first)], first)
	}
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	return f.BGRAt(x, y).RGBA()
}

// Set implements draw.Image.
func (f *Frame) Set(x, y int, c color.Color) {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	f.SetBGR(x, y, BGR{B: rgba.B, G: rgba.G, R: rgba.R})
}
