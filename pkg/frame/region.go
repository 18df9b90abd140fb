package frame

import (
	"fmt"
	"image"
)

// Region is an axis-aligned rectangle in frame pixel coordinates.
type Region struct {
	X, Y          int
	Width, Height int
}

// Area returns Width*Height, or 0 for degenerate regions.
func (r Region) Area() int {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Expand grows the region by dx on the left and right and dy on the top
// and bottom. The result may extend outside the frame.
func (r Region) Expand(dx, dy int) Region {
	return Region{
		X:      r.X - dx,
		Y:      r.Y - dy,
		Width:  r.Width + 2*dx,
		Height: r.Height + 2*dy,
	}
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// RegionFromRect converts an image.Rectangle into a Region.
func RegionFromRect(rect image.Rectangle) Region {
	rect = rect.Canon()
	return Region{X: rect.Min.X, Y: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}
}
