// Package analysis measures the regions outlined by the segmentation
// overlay.
package analysis

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// Config holds configuration options for zone analysis.
type Config struct {
	// Lower and Upper bound the overlay color in OpenCV HSV (H 0-180).
	Lower gocv.Scalar
	Upper gocv.Scalar

	// KernelSize is the side of the square used to close gaps in the overlay.
	KernelSize int

	// MinArea discards zones whose contour area is not larger than this.
	MinArea float64

	Logger *logrus.Logger
}

// DefaultConfig returns a Config matching the magenta overlay.
func DefaultConfig() Config {
	return Config{
		Lower:      gocv.NewScalar(145, 170, 190, 0),
		Upper:      gocv.NewScalar(155, 255, 255, 0),
		KernelSize: 3,
		MinArea:    28,
	}
}

// Zone is one region enclosed by the overlay.
type Zone struct {
	Name   string  `json:"name"`
	Area   float64 `json:"area"`
	Pixels int     `json:"pixels"`
	// Mean is the average grayscale intensity of the source image inside the zone.
	Mean float64 `json:"mean"`
}

// Analyzer extracts overlay zones.
type Analyzer struct {
	config Config
	log    *logrus.Logger
}

// New creates an Analyzer.
func New(config Config) *Analyzer {
	if config.KernelSize <= 0 {
		config.KernelSize = DefaultConfig().KernelSize
	}
	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Analyzer{config: config, log: log}
}

// Zones finds the regions outlined in annotated and reports the mean
// grayscale intensity of source within each one, largest zone first. Both
// images must have the same size.
func (a *Analyzer) Zones(annotated, source gocv.Mat) ([]Zone, error) {
	if annotated.Empty() || source.Empty() {
		return nil, fmt.Errorf("zones: empty image")
	}
	if annotated.Rows() != source.Rows() || annotated.Cols() != source.Cols() {
		return nil, fmt.Errorf("zones: size mismatch %dx%d vs %dx%d",
			annotated.Cols(), annotated.Rows(), source.Cols(), source.Rows())
	}

	outlines := a.outlines(annotated)
	if len(outlines) == 0 {
		return nil, nil
	}

	gray, err := grayBytes(source)
	if err != nil {
		return nil, err
	}

	zones := make([]Zone, 0, len(outlines))
	for i, o := range outlines {
		values, err := zoneValues(o.points, gray, source.Cols(), source.Rows())
		if err != nil {
			return nil, err
		}
		zone := Zone{
			Name:   fmt.Sprintf("Hand zone %d", i+1),
			Area:   o.area,
			Pixels: len(values),
		}
		if len(values) > 0 {
			zone.Mean = stat.Mean(values, nil)
		}
		zones = append(zones, zone)
	}

	a.log.WithField("zones", len(zones)).Debug("Zones analyzed")
	return zones, nil
}

type outline struct {
	points []image.Point
	area   float64
}

// outlines returns the overlay contours larger than MinArea, sorted by area
// descending.
func (a *Analyzer) outlines(annotated gocv.Mat) []outline {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(annotated, &hsv, gocv.ColorBGRToHSV)

	inRange := gocv.NewMat()
	defer inRange.Close()
	gocv.InRangeWithScalar(hsv, a.config.Lower, a.config.Upper, &inRange)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(a.config.KernelSize, a.config.KernelSize))
	defer kernel.Close()

	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(inRange, &closed, gocv.MorphClose, kernel)

	contours := gocv.FindContours(closed, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	var result []outline
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area > a.config.MinArea {
			result = append(result, outline{points: c.ToPoints(), area: area})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].area > result[j].area
	})
	return result
}

func grayBytes(src gocv.Mat) ([]byte, error) {
	gray := gocv.NewMat()
	defer gray.Close()

	switch src.Channels() {
	case 1:
		src.CopyTo(&gray)
	case 3:
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(src, &gray, gocv.ColorBGRAToGray)
	default:
		return nil, fmt.Errorf("zones: unsupported channel count %d", src.Channels())
	}
	return gray.ToBytes(), nil
}

// zoneValues fills the contour and collects the gray levels underneath it.
func zoneValues(points []image.Point, gray []byte, width, height int) ([]float64, error) {
	fill := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8U)
	defer fill.Close()

	pv := gocv.NewPointsVectorFromPoints([][]image.Point{points})
	defer pv.Close()
	gocv.DrawContours(&fill, pv, -1, color.RGBA{R: 255, G: 255, B: 255}, -1)

	mask := fill.ToBytes()
	if len(mask) != len(gray) {
		return nil, fmt.Errorf("zones: mask has %d bytes, image %d", len(mask), len(gray))
	}

	var values []float64
	for i, v := range mask {
		if v == 255 {
			values = append(values, float64(gray[i]))
		}
	}
	return values, nil
}
