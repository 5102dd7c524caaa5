package segment

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/Furulango/handseg/internal/detector"
)

// Landmark groups whose convex hull seeds the coarse hand mask.
var (
	fingerTips = []int{detector.ThumbTip, detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip}
	palmBase   = []int{detector.Wrist, detector.ThumbCMC, detector.IndexMCP, detector.MiddleMCP, detector.RingMCP, detector.PinkyMCP}
	midFingers = []int{detector.IndexPIP, detector.MiddlePIP, detector.RingPIP, detector.PinkyPIP}
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 0}

// Masks holds the three binary rasters built for one hand.
type Masks struct {
	// Foreground is the thresholded grayscale image.
	Foreground *Mask
	// Coarse is the filled, dilated landmark hull.
	Coarse *Mask
	// Masked is Foreground restricted to Coarse.
	Masked *Mask
}

// ForegroundMask converts img to grayscale and marks every pixel brighter
// than threshold.
func ForegroundMask(img gocv.Mat, threshold float32) (*Mask, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}

	gray := gocv.NewMat()
	defer gray.Close()

	switch img.Channels() {
	case 1:
		img.CopyTo(&gray)
	case 3:
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(img, &gray, gocv.ColorBGRAToGray)
	default:
		return nil, fmt.Errorf("foreground mask: unsupported channel count %d", img.Channels())
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, threshold, 255, gocv.ThresholdBinary)

	return MaskFromMat(binary)
}

// CoarseHandMask fills the convex hull of the fingertips, palm base and
// middle finger joints of set, then dilates it with a kernelSize square.
func CoarseHandMask(set *detector.LandmarkSet, width, height, kernelSize int) (*Mask, error) {
	canvas, err := NewMask(width, height).Mat()
	if err != nil {
		return nil, err
	}
	defer canvas.Close()

	points := set.Select(fingerTips...)
	points = append(points, set.Select(palmBase...)...)
	points = append(points, set.Select(midFingers...)...)

	pv := gocv.NewPointVectorFromPoints(points)
	defer pv.Close()

	hull := gocv.NewMat()
	defer hull.Close()
	gocv.ConvexHull(pv, &hull, false, true)

	hullPoints := gocv.NewPointVectorFromMat(hull)
	defer hullPoints.Close()

	polygon := gocv.NewPointsVector()
	defer polygon.Close()
	polygon.Append(hullPoints)
	gocv.FillPoly(&canvas, polygon, white)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(kernelSize, kernelSize))
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(canvas, &dilated, kernel)

	return MaskFromMat(dilated)
}

// BuildMasks derives the coarse and masked rasters of one hand from the
// image-wide foreground mask.
func BuildMasks(fg *Mask, set *detector.LandmarkSet, kernelSize int) (*Masks, error) {
	coarse, err := CoarseHandMask(set, fg.Width, fg.Height, kernelSize)
	if err != nil {
		return nil, fmt.Errorf("coarse hand mask: %w", err)
	}
	masked, err := fg.And(coarse)
	if err != nil {
		return nil, err
	}
	return &Masks{Foreground: fg, Coarse: coarse, Masked: masked}, nil
}
