// Package detector provides the hand landmark provider used by the segmentation pipeline.
package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// ErrInvalidLandmarks is returned when a landmark payload cannot be used.
var ErrInvalidLandmarks = errors.New("invalid landmarks")

// Point3D represents a normalized landmark position. X and Y are in the 0-1
// range relative to the image width and height; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// LandmarkSet holds the 21 landmarks of one hand in image pixel coordinates.
// The palm synthesizer relocates some of the points in place, so a set is
// owned by a single pipeline call.
type LandmarkSet [NumLandmarks]image.Point

// Pixels scales the normalized landmarks to a width x height image.
// Coordinates are truncated toward zero.
func (h *HandLandmarks) Pixels(width, height int) LandmarkSet {
	var set LandmarkSet
	if h == nil {
		return set
	}
	for i, p := range h.Points {
		set[i] = image.Point{
			X: int(p.X * float64(width)),
			Y: int(p.Y * float64(height)),
		}
	}
	return set
}

// Select returns the points at the given indices, in order.
func (s *LandmarkSet) Select(indices ...int) []image.Point {
	points := make([]image.Point, 0, len(indices))
	for _, idx := range indices {
		points = append(points, s[idx])
	}
	return points
}

// ParseHands decodes hand landmarks from JSON. It accepts either the
// detector service response ({"hands": [...]}) or a bare array of hands.
// Every hand must carry exactly NumLandmarks points.
func ParseHands(data []byte) ([]HandLandmarks, error) {
	var hands []jsonHand

	var wrapped struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Hands != nil {
		hands = wrapped.Hands
	} else if err := json.Unmarshal(data, &hands); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLandmarks, err)
	}

	result := make([]HandLandmarks, 0, len(hands))
	for i, h := range hands {
		if len(h.Points) != NumLandmarks {
			return nil, fmt.Errorf("%w: hand %d has %d points, want %d",
				ErrInvalidLandmarks, i, len(h.Points), NumLandmarks)
		}
		result = append(result, h.toHandLandmarks())
	}
	return result, nil
}
