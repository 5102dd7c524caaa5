package segment

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Mask is a binary raster with the same dimensions as the source image.
// Non-zero pixels are foreground.
//
// The palm walk samples the mask hundreds of thousands of times per hand,
// which is too slow through CGO, so the bytes are copied out of the Mat once.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask returns an all-background mask.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// MaskFromMat copies a single-channel 8-bit Mat into a Mask.
func MaskFromMat(mat gocv.Mat) (*Mask, error) {
	if mat.Empty() {
		return nil, ErrEmptyImage
	}
	if mat.Type() != gocv.MatTypeCV8U {
		return nil, fmt.Errorf("mask from mat: unsupported type %v", mat.Type())
	}

	data := mat.ToBytes()
	width, height := mat.Cols(), mat.Rows()
	if len(data) != width*height {
		return nil, fmt.Errorf("mask from mat: got %d bytes for %dx%d", len(data), width, height)
	}

	return &Mask{Width: width, Height: height, Pix: data}, nil
}

// Mat copies the mask into a new single-channel 8-bit Mat.
// The caller is responsible for closing the returned Mat.
func (m *Mask) Mat() (gocv.Mat, error) {
	shared, err := gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8U, m.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("mask to mat: %w", err)
	}
	defer shared.Close()

	// NewMatFromBytes aliases m.Pix.
	return shared.Clone(), nil
}

// And returns the pixel-wise intersection of m and o, which must have the
// same dimensions.
func (m *Mask) And(o *Mask) (*Mask, error) {
	if m.Width != o.Width || m.Height != o.Height {
		return nil, fmt.Errorf("mask and: %dx%d vs %dx%d", m.Width, m.Height, o.Width, o.Height)
	}
	out := NewMask(m.Width, m.Height)
	for i, v := range m.Pix {
		if v != 0 && o.Pix[i] != 0 {
			out.Pix[i] = 255
		}
	}
	return out, nil
}

// Bounds reports whether p lies inside the image.
func (m *Mask) Bounds(p image.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.Width && p.Y < m.Height
}

// On reports whether p lies inside the image and on a foreground pixel.
func (m *Mask) On(p image.Point) bool {
	return m.Bounds(p) && m.Pix[p.Y*m.Width+p.X] != 0
}

// Set writes v at p. Points outside the image are ignored.
func (m *Mask) Set(p image.Point, v uint8) {
	if m.Bounds(p) {
		m.Pix[p.Y*m.Width+p.X] = v
	}
}

// Fill sets every pixel to v.
func (m *Mask) Fill(v uint8) {
	for i := range m.Pix {
		m.Pix[i] = v
	}
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}
