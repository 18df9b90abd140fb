package annotate

import (
	"bytes"
	"image"
	"testing"

	"github.com/teslashibe/go-facecam/pkg/frame"
)

func TestSelectLargest(t *testing.T) {
	tests := []struct {
		name    string
		regions []frame.Region
		want    frame.Region
		wantOK  bool
	}{
		{
			name:    "empty list",
			regions: nil,
			wantOK:  false,
		},
		{
			name: "single region",
			regions: []frame.Region{
				{X: 1, Y: 2, Width: 3, Height: 4},
			},
			want:   frame.Region{X: 1, Y: 2, Width: 3, Height: 4},
			wantOK: true,
		},
		{
			name: "larger region first",
			regions: []frame.Region{
				{X: 10, Y: 10, Width: 100, Height: 100},
				{X: 200, Y: 200, Width: 40, Height: 40},
			},
			want:   frame.Region{X: 10, Y: 10, Width: 100, Height: 100},
			wantOK: true,
		},
		{
			name: "larger region last",
			regions: []frame.Region{
				{X: 0, Y: 0, Width: 5, Height: 5},
				{X: 50, Y: 50, Width: 6, Height: 6},
			},
			want:   frame.Region{X: 50, Y: 50, Width: 6, Height: 6},
			wantOK: true,
		},
		{
			name: "tie keeps first",
			regions: []frame.Region{
				{X: 0, Y: 0, Width: 10, Height: 20},
				{X: 99, Y: 99, Width: 20, Height: 10},
			},
			want:   frame.Region{X: 0, Y: 0, Width: 10, Height: 20},
			wantOK: true,
		},
		{
			name: "degenerate regions ignored",
			regions: []frame.Region{
				{X: 0, Y: 0, Width: 0, Height: 50},
				{X: 0, Y: 0, Width: -4, Height: -4},
			},
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := SelectLargest(tc.regions)
			if ok != tc.wantOK {
				t.Fatalf("SelectLargest ok: got %v, want %v", ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Errorf("SelectLargest: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAnnotate_NilRegionIsIdentity(t *testing.T) {
	f := frame.New(32, 24)
	for i := range f.Pix {
		f.Pix[i] = byte(i)
	}
	before := bytes.Clone(f.Pix)

	out := Annotate(f, nil)

	if out != f {
		t.Error("Annotate should return the same frame")
	}
	if !bytes.Equal(out.Pix, before) {
		t.Error("Annotate(frame, nil) modified the frame")
	}
}

func TestAnnotate_MarkerCorners(t *testing.T) {
	f := frame.New(320, 240)
	region := frame.Region{X: 10, Y: 10, Width: 100, Height: 100}

	Annotate(f, &region)

	// Marker spans (0,-10)-(120,130); the top edge is clipped away.
	marked := []image.Point{
		{X: 0, Y: 0},
		{X: 0, Y: 50},
		{X: 0, Y: 130},
		{X: 120, Y: 50},
		{X: 120, Y: 130},
		{X: 60, Y: 130},
		{X: 60, Y: 129},
	}
	for _, p := range marked {
		if c := f.BGRAt(p.X, p.Y); c != MarkerColor {
			t.Errorf("pixel %v: got %+v, want marker color", p, c)
		}
	}

	clear := []image.Point{
		{X: 60, Y: 0},   // top edge lies above the frame
		{X: 60, Y: 60},  // inside the box
		{X: 2, Y: 50},   // just inside the left edge
		{X: 122, Y: 50}, // just outside the right edge
		{X: 60, Y: 132}, // just below the bottom edge
		{X: 220, Y: 220},
	}
	for _, p := range clear {
		if c := f.BGRAt(p.X, p.Y); c != (frame.BGR{}) {
			t.Errorf("pixel %v: got %+v, want untouched", p, c)
		}
	}
}

func TestAnnotate_FullyOutside(t *testing.T) {
	f := frame.New(50, 50)
	region := frame.Region{X: 500, Y: 500, Width: 10, Height: 10}

	Annotate(f, &region)

	for _, b := range f.Pix {
		if b != 0 {
			t.Fatal("marker outside the frame should not draw anything")
		}
	}
}

func TestProcess(t *testing.T) {
	f := frame.New(320, 240)
	regions := []frame.Region{
		{X: 10, Y: 10, Width: 100, Height: 100},
		{X: 200, Y: 200, Width: 40, Height: 40},
	}

	out, marked := Process(f, regions)
	if marked == nil {
		t.Fatal("Process: expected a marked region")
	}
	if *marked != regions[0] {
		t.Errorf("Process: marked %v, want %v", *marked, regions[0])
	}
	if out.BGRAt(0, 50) != MarkerColor {
		t.Error("Process: marker not drawn")
	}

	// The smaller region is not outlined
	if out.BGRAt(190, 220) != (frame.BGR{}) {
		t.Error("Process: second region should not be marked")
	}

	blank := frame.New(10, 10)
	if _, marked := Process(blank, nil); marked != nil {
		t.Error("Process: no regions should mark nothing")
	}
}

func TestCaption(t *testing.T) {
	f := frame.New(200, 40)
	Caption(f, image.Pt(5, 5), "20240101_120000")

	lit := 0
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			if f.BGRAt(x, y) == (frame.BGR{B: 255, G: 255, R: 255}) {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("Caption: expected white glyph pixels")
	}
}
