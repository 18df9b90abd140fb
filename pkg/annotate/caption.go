package annotate

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Caption writes a white label on a black box with its top-left corner at
// pt. It works on any draw.Image, including *frame.Frame.
func Caption(dst draw.Image, pt image.Point, label string) {
	face := basicfont.Face7x13
	box := image.Rect(pt.X, pt.Y, pt.X+len(label)*face.Advance+3, pt.Y+face.Height)
	draw.Draw(dst, box, &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	(&font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(pt.X+2, pt.Y+face.Ascent),
	}).DrawString(label)
}
