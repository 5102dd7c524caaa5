package segment

import (
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Sample counts used by the line walkers.
const (
	// LimitedLineSamples is the number of samples on a finger segment.
	LimitedLineSamples = 50
	// RaySamples is the number of samples on a short reverse ray.
	RaySamples = 100
	// LongRaySamples is the number of samples on a palm-edge reverse ray.
	LongRaySamples = 1000
	// SegmentTestSamples is the number of samples used to test a palm segment.
	SegmentTestSamples = 1000
)

// offImage is returned by truncate for values that do not fit an image
// coordinate. It fails every bounds check.
const offImage = math.MinInt32

// Segment is one straight line drawing command.
type Segment struct {
	A, B image.Point
}

// Line is the infinite line y = Slope*x + Intercept. Vertical lines carry no
// slope; the palm walk holds x fixed on them and reverse rays skip them.
type Line struct {
	Slope     float64
	Intercept float64
	Vertical  bool
}

// LineThrough returns the line through a and b.
func LineThrough(a, b image.Point) Line {
	if a.X == b.X {
		return Line{Vertical: true}
	}
	m := float64(b.Y-a.Y) / float64(b.X-a.X)
	return Line{
		Slope:     m,
		Intercept: float64(a.Y) - m*float64(a.X),
	}
}

// Up moves p one pixel up along the line. x is recomputed from the line
// equation, or held when the line is vertical or horizontal.
func (l Line) Up(p image.Point) image.Point {
	y := p.Y - 1
	if l.Vertical || l.Slope == 0 {
		return image.Point{X: p.X, Y: y}
	}
	return image.Point{X: truncate((float64(y) - l.Intercept) / l.Slope), Y: y}
}

// truncate converts v to an int, rounding toward zero. Non-finite or
// out-of-range values map to offImage.
func truncate(v float64) int {
	if math.IsNaN(v) || v > math.MaxInt32 || v < math.MinInt32 {
		return offImage
	}
	return int(v)
}

// lerp returns the point at parameter t on the straight interpolation
// a*(1-t) + b*t.
func lerp(a, b image.Point, t float64) image.Point {
	return image.Point{
		X: truncate(float64(a.X)*(1-t) + float64(b.X)*t),
		Y: truncate(float64(a.Y)*(1-t) + float64(b.Y)*t),
	}
}

// sampler holds evenly spaced parameters, endpoints included.
type sampler []float64

func newSampler(n int, from, to float64) sampler {
	if n < 2 {
		return sampler{from}
	}
	ts := floats.Span(make([]float64, n), from, to)
	ts[n-1] = to
	return ts
}

// walkState is the state threaded through a limited line walk: the last
// accepted sample, if any.
type walkState struct {
	prev    image.Point
	started bool
}

// advance accepts the sample p. It reports out when p leaves the image or
// the mask. When p follows an accepted sample, seg is the connecting line.
func (s walkState) advance(p image.Point, m *Mask) (next walkState, seg Segment, draw, out bool) {
	if !m.On(p) {
		return s, Segment{}, false, true
	}
	if s.started {
		seg, draw = Segment{A: s.prev, B: p}, true
	}
	return walkState{prev: p, started: true}, seg, draw, false
}

// LimitedLine walks from a toward b and returns the connected segments
// drawn while every sample stays in bounds and on the mask. The walk stops
// permanently at the first violation.
func LimitedLine(a, b image.Point, m *Mask, samples int) []Segment {
	var (
		segments []Segment
		state    walkState
	)
	for _, t := range newSampler(samples, 0, 1) {
		next, seg, draw, out := state.advance(lerp(a, b, t), m)
		if out {
			break
		}
		if draw {
			segments = append(segments, seg)
		}
		state = next
	}
	return segments
}

// ReverseRay walks the line through from and toward backward from from,
// away from toward, with t running from 0 to -1. x is interpolated and y
// taken from the line equation. It returns the last sample that is in bounds
// and on the mask; ok is false when even the first sample fails or when the
// two points share x, since no line equation exists then.
func ReverseRay(from, toward image.Point, m *Mask, samples int) (end image.Point, ok bool) {
	line := LineThrough(from, toward)
	if line.Vertical {
		return image.Point{}, false
	}
	for _, t := range newSampler(samples, 0, -1) {
		p := lerp(from, toward, t)
		p.Y = truncate(line.Slope*float64(p.X) + line.Intercept)
		if !m.On(p) {
			break
		}
		end, ok = p, true
	}
	return end, ok
}

// SegmentOut reports whether the segment a-b leaves the mask: either
// endpoint off the mask, or any of samples evenly spaced interpolated points
// out of bounds or on a background pixel.
func SegmentOut(a, b image.Point, m *Mask, ts sampler) bool {
	if !m.On(a) || !m.On(b) {
		return true
	}
	for _, t := range ts {
		if !m.On(lerp(a, b, t)) {
			return true
		}
	}
	return false
}
