package segment

import (
	"image"
	"testing"

	"github.com/Furulango/handseg/internal/detector"
)

type recordingCanvas struct {
	strokes []Stroke
}

func (c *recordingCanvas) Line(a, b image.Point, thickness int) {
	c.strokes = append(c.strokes, Stroke{Segment: Segment{A: a, B: b}, Thickness: thickness})
}

func TestSkeletonStrokes(t *testing.T) {
	t.Run("unobstructed hand", func(t *testing.T) {
		set := openPalmPixels(200, 200)
		white := whiteMask(200, 200)

		strokes := SkeletonStrokes(&set, white, white)

		// seven pairs walked both ways, one pair walked once, three rays
		want := 15*(LimitedLineSamples-1) + len(skeletonRays)
		if len(strokes) != want {
			t.Errorf("expected %d strokes, got %d", want, len(strokes))
		}
	})

	t.Run("thumb tip pair is walked one way", func(t *testing.T) {
		set := openPalmPixels(200, 200)
		white := whiteMask(200, 200)

		strokes := SkeletonStrokes(&set, white, white)

		var reachesTip bool
		for _, s := range strokes {
			if s.A == set[detector.ThumbTip] {
				t.Fatalf("no stroke may start at the thumb tip, got %v", s)
			}
			if s.B == set[detector.ThumbTip] {
				reachesTip = true
			}
		}
		if !reachesTip {
			t.Error("expected a stroke ending at the thumb tip")
		}
	})

	t.Run("rays use the coarse mask", func(t *testing.T) {
		set := openPalmPixels(200, 200)

		strokes := SkeletonStrokes(&set, NewMask(200, 200), whiteMask(200, 200))

		if len(strokes) != len(skeletonRays) {
			t.Fatalf("expected only the %d rays, got %d strokes", len(skeletonRays), len(strokes))
		}
		for _, s := range strokes {
			if s.Thickness != thin {
				t.Errorf("expected ray thickness %d, got %d", thin, s.Thickness)
			}
		}
	})

	t.Run("ray between joints sharing x is skipped", func(t *testing.T) {
		set := openPalmPixels(200, 200)
		set[detector.PinkyDIP].X = set[detector.RingDIP].X
		white := whiteMask(200, 200)

		strokes := SkeletonStrokes(&set, white, white)

		want := 15*(LimitedLineSamples-1) + len(skeletonRays) - 1
		if len(strokes) != want {
			t.Errorf("expected %d strokes, got %d", want, len(strokes))
		}
		for _, s := range strokes {
			if s.Thickness == thin && s.A == set[detector.PinkyDIP] {
				t.Errorf("unexpected ray from the pinky DIP: %v", s)
			}
		}
	})

	t.Run("offscreen hand draws nothing", func(t *testing.T) {
		hand := detector.OffscreenLandmarks()
		set := hand.Pixels(200, 200)
		white := whiteMask(200, 200)

		if strokes := SkeletonStrokes(&set, white, white); len(strokes) != 0 {
			t.Errorf("expected no strokes, got %d", len(strokes))
		}
	})
}

func TestPalmStrokes(t *testing.T) {
	t.Run("edges follow the relocated corners", func(t *testing.T) {
		set := openPalmPixels(200, 200)
		white := whiteMask(200, 200)
		WalkPalm(&set, white, 10)

		strokes := PalmStrokes(&set, white, white)

		if len(strokes) < 3 {
			t.Fatalf("expected at least 3 strokes, got %d", len(strokes))
		}
		edges := []Segment{
			{A: set[detector.IndexMCP], B: set[detector.MiddleMCP]},
			{A: set[detector.PinkyMCP], B: set[detector.RingMCP]},
			{A: set[detector.MiddleMCP], B: set[detector.RingMCP]},
		}
		for i, want := range edges {
			if strokes[i].Segment != want || strokes[i].Thickness != thick {
				t.Errorf("edge %d: expected %v, got %v", i, want, strokes[i])
			}
		}
	})

	t.Run("offscreen hand keeps only the edges", func(t *testing.T) {
		hand := detector.OffscreenLandmarks()
		set := hand.Pixels(200, 200)
		white := whiteMask(200, 200)

		if strokes := PalmStrokes(&set, white, white); len(strokes) != 3 {
			t.Errorf("expected 3 edge strokes, got %d", len(strokes))
		}
	})
}

func TestTrace(t *testing.T) {
	set := openPalmPixels(200, 200)
	white := whiteMask(200, 200)
	masks := &Masks{Foreground: white, Coarse: white, Masked: white}

	first := set
	strokes1, palm1 := Trace(&first, masks, DefaultMaxSteps)
	second := set
	strokes2, palm2 := Trace(&second, masks, DefaultMaxSteps)

	if palm1 != palm2 {
		t.Errorf("palm results differ: %+v vs %+v", palm1, palm2)
	}
	if len(strokes1) != len(strokes2) {
		t.Fatalf("stroke counts differ: %d vs %d", len(strokes1), len(strokes2))
	}
	for i := range strokes1 {
		if strokes1[i] != strokes2[i] {
			t.Fatalf("stroke %d differs: %v vs %v", i, strokes1[i], strokes2[i])
		}
	}

	var canvas recordingCanvas
	Draw(&canvas, strokes1)
	if len(canvas.strokes) != len(strokes1) {
		t.Errorf("expected %d drawn strokes, got %d", len(strokes1), len(canvas.strokes))
	}
}
