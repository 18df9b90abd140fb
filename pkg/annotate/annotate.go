// Package annotate picks the most prominent face region and draws a marker
// around it.
package annotate

import (
	"image"

	"github.com/teslashibe/go-facecam/pkg/frame"
)

// Marker geometry and color. These are fixed: every frame gets the same
// marker so the overlay does not flicker between ticks.
const (
	MarginX   = 10 // px added left and right of the region
	MarginY   = 20 // px added above and below the region
	Thickness = 2
)

// MarkerColor is orange in capture (B, G, R) order.
var MarkerColor = frame.BGR{B: 0, G: 165, R: 255}

// SelectLargest returns the region with the largest area.
// A region only replaces the current best when its area is strictly
// greater, so on ties the first region in detector order wins.
// Regions with zero area are never selected.
func SelectLargest(regions []frame.Region) (frame.Region, bool) {
	var (
		best    frame.Region
		maxArea int
	)
	for _, r := range regions {
		if a := r.Area(); a > maxArea {
			best, maxArea = r, a
		}
	}
	return best, maxArea > 0
}

// Annotate draws the marker around region on f and returns f.
// A nil region leaves the frame untouched.
func Annotate(f *frame.Frame, region *frame.Region) *frame.Frame {
	if f.Empty() || region == nil {
		return f
	}
	box := region.Expand(MarginX, MarginY).Rect()
	DrawRectangle(f, box, MarkerColor, Thickness)
	return f
}

// DrawRectangle outlines r with lines of the given thickness centered on
// the rectangle edges, from r.Min to r.Max inclusive. Parts falling
// outside the frame are clipped by Frame.Fill.
func DrawRectangle(f *frame.Frame, r image.Rectangle, c frame.BGR, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	r = r.Canon()
	lo := thickness / 2
	hi := thickness - lo

	x0, x1 := r.Min.X-lo, r.Max.X+hi
	y0, y1 := r.Min.Y-lo, r.Max.Y+hi

	f.Fill(image.Rect(x0, y0, x1, r.Min.Y+hi), c) // top
	f.Fill(image.Rect(x0, r.Max.Y-lo, x1, y1), c) // bottom
	f.Fill(image.Rect(x0, y0, r.Min.X+hi, y1), c) // left
	f.Fill(image.Rect(r.Max.X-lo, y0, x1, y1), c) // right
}

// Process runs selection and annotation for one tick and reports the
// region that was marked, if any.
func Process(f *frame.Frame, regions []frame.Region) (*frame.Frame, *frame.Region) {
	best, ok := SelectLargest(regions)
	if !ok {
		return f, nil
	}
	return Annotate(f, &best), &best
}
