package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/teslashibe/go-facecam/pkg/frame"
)

// Converter turns frames into display buffers and encoded stills.
// The zero value is ready to use and never resamples.
type Converter struct {
	// Scale resizes live buffers by this factor. 0 and 1 keep the frame
	// size exactly; the pixels are then copied without resampling.
	Scale float64
}

// NewConverter returns a Converter with the given display scale.
func NewConverter(scale float64) *Converter {
	return &Converter{Scale: scale}
}

func (c *Converter) scaled() bool {
	return c != nil && c.Scale > 0 && c.Scale != 1
}

// ToBuffer flips f and packs it as a BGR buffer. Width and height match
// the frame unless a display scale is configured.
func (c *Converter) ToBuffer(f *frame.Frame, flip FlipMode) (Buffer, error) {
	if f.Empty() {
		return Buffer{}, fmt.Errorf("render: empty frame")
	}

	src := f
	if c.scaled() {
		src = c.resize(f)
	}

	pix := make([]byte, len(src.Pix))
	flipInto(pix, src, flip)

	return Buffer{
		Width:  src.Width,
		Height: src.Height,
		Format: FormatBGR,
		Flip:   flip,
		Pix:    pix,
	}, nil
}

func (c *Converter) resize(f *frame.Frame) *frame.Frame {
	w := int(float64(f.Width)*c.Scale + 0.5)
	h := int(float64(f.Height)*c.Scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := frame.New(w, h)
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), f, f.Bounds(), xdraw.Src, nil)
	return dst
}

// toImage flips f into an NRGBA image, the layout still-image encoders
// handle fastest. Stills are never scaled.
func toImage(f *frame.Frame, flip FlipMode) *image.NRGBA {
	flipped := Flip(f, flip)
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		src := flipped.Pix[y*flipped.Stride() : (y+1)*flipped.Stride()]
		dst := img.Pix[y*img.Stride : y*img.Stride+f.Width*4]
		for x := 0; x < f.Width; x++ {
			si, di := x*frame.BytesPerPixel, x*4
			dst[di] = src[si+2]
			dst[di+1] = src[si+1]
			dst[di+2] = src[si]
			dst[di+3] = 0xff
		}
	}
	return img
}

// Overlay draws on a still after flipping and before encoding.
type Overlay func(dst draw.Image)

// Encode flips f, applies the overlays in order and encodes the result as
// PNG. f itself is not modified.
func (c *Converter) Encode(f *frame.Frame, flip FlipMode, overlays ...Overlay) ([]byte, error) {
	if f.Empty() {
		return nil, fmt.Errorf("render: empty frame")
	}
	img := toImage(f, flip)
	for _, o := range overlays {
		o(img)
	}
	return encodePNG(img)
}

// encodePNG encodes img losslessly.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
