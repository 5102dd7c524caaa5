package segment

import (
	"image"

	"github.com/Furulango/handseg/internal/detector"
)

// DefaultMaxSteps bounds the palm walk.
const DefaultMaxSteps = 500

// StopReason explains why the palm walk ended.
type StopReason int

const (
	// FixedPoint means every palm segment would have left the mask.
	FixedPoint StopReason = iota
	// StepCap means the walk ran out of steps.
	StepCap
)

func (r StopReason) String() string {
	switch r {
	case FixedPoint:
		return "fixed_point"
	case StepCap:
		return "step_cap"
	default:
		return "unknown"
	}
}

// palmCorners are the four knuckles relocated by the walk, each paired with
// the joint that fixes its direction of travel.
var palmCorners = [4]struct{ corner, guide int }{
	{detector.IndexMCP, detector.IndexPIP},
	{detector.MiddleMCP, detector.MiddlePIP},
	{detector.PinkyMCP, detector.PinkyPIP},
	{detector.RingMCP, detector.RingPIP},
}

// PalmResult describes a finished palm walk.
type PalmResult struct {
	// Steps is the number of steps that committed at least one segment.
	Steps  int
	Reason StopReason
	// Corners holds the final positions of landmarks 5, 9, 17 and 13.
	Corners [4]image.Point
}

// WalkPalm relocates the palm corners of set in place. Every step proposes
// moving each corner one pixel up along the line through its original
// position and its guide joint, then tests the segments 5-9, 17-13 and 9-13
// against m. The pairs whose segment stays inside are committed in that order.
// The walk stops when all three segments leave the mask or after maxSteps.
func WalkPalm(set *detector.LandmarkSet, m *Mask, maxSteps int) PalmResult {
	var lines [4]Line
	for i, c := range palmCorners {
		lines[i] = LineThrough(set[c.corner], set[c.guide])
	}
	ts := newSampler(SegmentTestSamples, 0, 1)

	result := PalmResult{Reason: StepCap}
	for step := 0; step < maxSteps; step++ {
		p5 := lines[0].Up(set[detector.IndexMCP])
		p9 := lines[1].Up(set[detector.MiddleMCP])
		p17 := lines[2].Up(set[detector.PinkyMCP])
		p13 := lines[3].Up(set[detector.RingMCP])

		top := SegmentOut(p5, p9, m, ts)
		bottom := SegmentOut(p17, p13, m, ts)
		inner := SegmentOut(p9, p13, m, ts)

		if top && bottom && inner {
			result.Reason = FixedPoint
			break
		}

		if !top {
			set[detector.IndexMCP], set[detector.MiddleMCP] = p5, p9
		}
		if !bottom {
			set[detector.PinkyMCP], set[detector.RingMCP] = p17, p13
		}
		if !inner {
			set[detector.MiddleMCP], set[detector.RingMCP] = p9, p13
		}
		result.Steps++
	}

	for i, c := range palmCorners {
		result.Corners[i] = set[c.corner]
	}
	return result
}
