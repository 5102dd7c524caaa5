package detector

import (
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Detector defines the interface for hand landmark providers.
type Detector interface {
	// Detect analyzes an image and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// StaticImageMode treats every image as unrelated to the previous one.
	StaticImageMode bool

	// Logger receives the landmark service's stderr at debug level.
	Logger *logrus.Logger
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.6,
		StaticImageMode: true,
	}
}
