package segment

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Highlight is the default overlay color (magenta).
var Highlight = color.RGBA{R: 255, G: 0, B: 255, A: 0}

// Stroke is a line drawing command with a thickness.
type Stroke struct {
	Segment
	Thickness int
}

// Canvas receives line drawing commands.
type Canvas interface {
	Line(a, b image.Point, thickness int)
}

// Draw sends every stroke to c, in order.
func Draw(c Canvas, strokes []Stroke) {
	for _, s := range strokes {
		c.Line(s.A, s.B, s.Thickness)
	}
}

// matCanvas draws onto a gocv Mat in a single color.
type matCanvas struct {
	mat   *gocv.Mat
	color color.RGBA
}

func (c *matCanvas) Line(a, b image.Point, thickness int) {
	gocv.Line(c.mat, a, b, c.color, thickness)
}
