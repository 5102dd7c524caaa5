// Package segment reconstructs the outline of a hand from its landmarks and
// a thresholded image: finger skeleton, synthesized palm edges and the outer
// contour, drawn in one highlight color.
package segment

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/Furulango/handseg/internal/detector"
)

var (
	// ErrDecodeImage is returned when input bytes or files are not a readable image.
	ErrDecodeImage = errors.New("cannot decode image")
	// ErrEmptyImage is returned when an operation receives an empty Mat.
	ErrEmptyImage = errors.New("empty image")
)

// Config holds configuration options for the segmenter.
type Config struct {
	// Threshold is the grayscale level above which a pixel is foreground.
	Threshold float32

	// KernelSize is the side of the square used to dilate the coarse mask.
	KernelSize int

	// MaxSteps bounds the palm walk.
	MaxSteps int

	// MaxHands is the maximum number of hands drawn per image.
	MaxHands int

	// Color is the overlay color.
	Color color.RGBA

	// Logger receives debug output. Defaults to the logrus standard logger.
	Logger *logrus.Logger
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Threshold:  128,
		KernelSize: 5,
		MaxSteps:   DefaultMaxSteps,
		MaxHands:   2,
		Color:      Highlight,
	}
}

// HandReport summarizes the processing of one hand.
type HandReport struct {
	Index      int
	Handedness string
	Palm       PalmResult
	Strokes    int
	Contours   [][]image.Point
}

// Result is the output of Segment.
type Result struct {
	// Image is the annotated copy of the input. Owned by the Result.
	Image gocv.Mat
	Hands []HandReport
}

// Close releases the annotated image.
func (r *Result) Close() error {
	return r.Image.Close()
}

// Segmenter draws hand outlines. It holds no per-image state and may be used
// from several goroutines.
type Segmenter struct {
	config Config
	log    *logrus.Logger
}

// New creates a Segmenter. Zero fields of config fall back to DefaultConfig.
func New(config Config) *Segmenter {
	def := DefaultConfig()
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.KernelSize <= 0 {
		config.KernelSize = def.KernelSize
	}
	if config.MaxSteps <= 0 {
		config.MaxSteps = def.MaxSteps
	}
	if config.MaxHands <= 0 {
		config.MaxHands = def.MaxHands
	}
	if config.Color == (color.RGBA{}) {
		config.Color = def.Color
	}
	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Segmenter{config: config, log: log}
}

// Config returns the effective configuration.
func (s *Segmenter) Config() Config {
	return s.config
}

// Trace computes the strokes of one hand without drawing them. It relocates
// the palm corners of set in place.
func Trace(set *detector.LandmarkSet, masks *Masks, maxSteps int) ([]Stroke, PalmResult) {
	strokes := SkeletonStrokes(set, masks.Foreground, masks.Coarse)
	palm := WalkPalm(set, masks.Masked, maxSteps)
	strokes = append(strokes, PalmStrokes(set, masks.Masked, masks.Coarse)...)
	return strokes, palm
}

// Segment draws the outline of every hand onto a copy of img. With no hands
// the copy is returned unchanged. img itself is never modified.
func (s *Segmenter) Segment(img gocv.Mat, hands []detector.HandLandmarks) (*Result, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}

	out := gocv.NewMat()
	if img.Channels() == 1 {
		gocv.CvtColor(img, &out, gocv.ColorGrayToBGR)
	} else {
		img.CopyTo(&out)
	}
	result := &Result{Image: out}
	if len(hands) == 0 {
		return result, nil
	}

	fg, err := ForegroundMask(img, s.config.Threshold)
	if err != nil {
		result.Close()
		return nil, err
	}

	if len(hands) > s.config.MaxHands {
		s.log.WithFields(logrus.Fields{
			"hands": len(hands),
			"max":   s.config.MaxHands,
		}).Warn("Ignoring extra hands")
		hands = hands[:s.config.MaxHands]
	}

	canvas := &matCanvas{mat: &result.Image, color: s.config.Color}
	for i := range hands {
		set := hands[i].Pixels(fg.Width, fg.Height)

		masks, err := BuildMasks(fg, &set, s.config.KernelSize)
		if err != nil {
			result.Close()
			return nil, fmt.Errorf("hand %d: %w", i, err)
		}

		strokes, palm := Trace(&set, masks, s.config.MaxSteps)
		Draw(canvas, strokes)

		contours, err := Contours(masks.Masked)
		if err != nil {
			result.Close()
			return nil, fmt.Errorf("hand %d: contours: %w", i, err)
		}
		DrawContours(&result.Image, contours, s.config.Color, thick)

		s.log.WithFields(logrus.Fields{
			"hand":     i,
			"steps":    palm.Steps,
			"reason":   palm.Reason.String(),
			"strokes":  len(strokes),
			"contours": len(contours),
		}).Debug("Hand segmented")

		result.Hands = append(result.Hands, HandReport{
			Index:      i,
			Handedness: hands[i].Handedness,
			Palm:       palm,
			Strokes:    len(strokes),
			Contours:   contours,
		})
	}

	return result, nil
}

// SegmentFile reads inputPath, detects hands with d, and writes the annotated
// image to outputPath. A nil detector means no hands. It returns false with
// ErrDecodeImage when the input cannot be read.
func (s *Segmenter) SegmentFile(inputPath, outputPath string, d detector.Detector) (ok bool, err error) {
	img := gocv.IMRead(inputPath, gocv.IMReadColor)
	defer func() {
		err = multierr.Append(err, img.Close())
	}()
	if img.Empty() {
		return false, fmt.Errorf("read %s: %w", inputPath, ErrDecodeImage)
	}

	var hands []detector.HandLandmarks
	if d != nil {
		hands, err = d.Detect(&img)
		if err != nil {
			return false, fmt.Errorf("detect hands: %w", err)
		}
	}

	result, err := s.Segment(img, hands)
	if err != nil {
		return false, err
	}
	defer func() {
		err = multierr.Append(err, result.Close())
	}()

	if !gocv.IMWrite(outputPath, result.Image) {
		return false, fmt.Errorf("write %s: failed", outputPath)
	}
	return true, nil
}

// Decode reads an encoded image into a BGR Mat.
func Decode(data []byte) (gocv.Mat, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), ErrDecodeImage
	}
	return img, nil
}

// Encode compresses img with the given extension, e.g. gocv.PNGFileExt.
func Encode(img gocv.Mat, ext gocv.FileExt) ([]byte, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}
	buf, err := gocv.IMEncode(ext, img)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ext, err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
