package segment

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Contours returns the external boundaries of m, simplified to polygon
// vertices.
func Contours(m *Mask) ([][]image.Point, error) {
	mat, err := m.Mat()
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	contours := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	return contours.ToPoints(), nil
}

// DrawContours outlines every contour on img.
func DrawContours(img *gocv.Mat, contours [][]image.Point, c color.RGBA, thickness int) {
	if len(contours) == 0 {
		return
	}
	pv := gocv.NewPointsVectorFromPoints(contours)
	defer pv.Close()
	gocv.DrawContours(img, pv, -1, c, thickness)
}
