package segment

import (
	"image"

	"github.com/Furulango/handseg/internal/detector"
)

// Stroke thicknesses.
const (
	thin  = 1
	thick = 2
)

// fingerSegments are the joint pairs of the finger skeleton. Pairs marked
// oneWay are walked from b to a only; the rest are walked in both directions
// and the two truncated stubs are kept separately.
var fingerSegments = []struct {
	a, b   int
	oneWay bool
}{
	{a: detector.ThumbIP, b: detector.IndexPIP},
	{a: detector.ThumbTip, b: detector.IndexDIP, oneWay: true},
	{a: detector.IndexPIP, b: detector.MiddlePIP},
	{a: detector.MiddlePIP, b: detector.RingPIP},
	{a: detector.RingPIP, b: detector.PinkyPIP},
	{a: detector.IndexDIP, b: detector.MiddleDIP},
	{a: detector.MiddleDIP, b: detector.RingDIP},
	{a: detector.RingDIP, b: detector.PinkyDIP},
}

// skeletonRays extend a joint outward, away from the second joint.
var skeletonRays = [][2]int{
	{detector.PinkyDIP, detector.RingDIP},
	{detector.PinkyPIP, detector.RingPIP},
	{detector.ThumbIP, detector.IndexMCP},
}

func limitedStrokes(a, b image.Point, m *Mask, thickness int) []Stroke {
	segments := LimitedLine(a, b, m, LimitedLineSamples)
	strokes := make([]Stroke, 0, len(segments))
	for _, s := range segments {
		strokes = append(strokes, Stroke{Segment: s, Thickness: thickness})
	}
	return strokes
}

func rayStroke(from, toward image.Point, m *Mask, samples, thickness int) []Stroke {
	end, ok := ReverseRay(from, toward, m, samples)
	if !ok {
		return nil
	}
	return []Stroke{{Segment: Segment{A: from, B: end}, Thickness: thickness}}
}

// SkeletonStrokes returns the finger skeleton of set: the truncated finger
// segments walked against the foreground mask, then the outward rays walked
// against the dilated coarse mask.
func SkeletonStrokes(set *detector.LandmarkSet, fg, coarse *Mask) []Stroke {
	var strokes []Stroke
	for _, f := range fingerSegments {
		if f.oneWay {
			strokes = append(strokes, limitedStrokes(set[f.b], set[f.a], fg, thick)...)
			continue
		}
		strokes = append(strokes, limitedStrokes(set[f.a], set[f.b], fg, thick)...)
		strokes = append(strokes, limitedStrokes(set[f.b], set[f.a], fg, thick)...)
	}
	for _, r := range skeletonRays {
		strokes = append(strokes, rayStroke(set[r[0]], set[r[1]], coarse, RaySamples, thin)...)
	}
	return strokes
}

// PalmStrokes returns the palm edges drawn after the walk has relocated the
// corners of set: the three connecting edges, the rays extending 5 and 17
// outward, and the thumb base segment with its ray.
func PalmStrokes(set *detector.LandmarkSet, masked, coarse *Mask) []Stroke {
	strokes := []Stroke{
		{Segment: Segment{A: set[detector.IndexMCP], B: set[detector.MiddleMCP]}, Thickness: thick},
		{Segment: Segment{A: set[detector.PinkyMCP], B: set[detector.RingMCP]}, Thickness: thick},
		{Segment: Segment{A: set[detector.MiddleMCP], B: set[detector.RingMCP]}, Thickness: thick},
	}
	strokes = append(strokes, rayStroke(set[detector.IndexMCP], set[detector.MiddleMCP], masked, LongRaySamples, thick)...)
	strokes = append(strokes, rayStroke(set[detector.PinkyMCP], set[detector.RingMCP], masked, LongRaySamples, thin)...)

	strokes = append(strokes, limitedStrokes(set[detector.ThumbMCP], set[detector.IndexPIP], masked, thick)...)
	strokes = append(strokes, rayStroke(set[detector.ThumbMCP], set[detector.IndexPIP], coarse, RaySamples, thin)...)
	return strokes
}
