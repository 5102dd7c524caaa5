package analysis

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

var magenta = color.RGBA{R: 255, G: 0, B: 255}

func solid(v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), 100, 100, gocv.MatTypeCV8UC3)
}

func TestAnalyzer_Zones(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	a := New(DefaultConfig())

	t.Run("outlined square", func(t *testing.T) {
		annotated := solid(0)
		defer annotated.Close()
		gocv.Rectangle(&annotated, image.Rect(20, 20, 80, 80), magenta, 2)

		source := solid(100)
		defer source.Close()

		zones, err := a.Zones(annotated, source)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(zones) == 0 {
			t.Fatal("expected at least one zone")
		}
		if zones[0].Name != "Hand zone 1" {
			t.Errorf("expected first zone to be named Hand zone 1, got %s", zones[0].Name)
		}
		if zones[0].Mean != 100 {
			t.Errorf("expected mean 100, got %f", zones[0].Mean)
		}
		if zones[0].Pixels == 0 {
			t.Error("expected zone pixels")
		}
		for i := 1; i < len(zones); i++ {
			if zones[i].Area > zones[i-1].Area {
				t.Errorf("zones not sorted by area: %f after %f", zones[i].Area, zones[i-1].Area)
			}
		}
	})

	t.Run("tiny marks are ignored", func(t *testing.T) {
		annotated := solid(0)
		defer annotated.Close()
		gocv.Rectangle(&annotated, image.Rect(10, 10, 13, 13), magenta, -1)

		source := solid(50)
		defer source.Close()

		zones, err := a.Zones(annotated, source)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(zones) != 0 {
			t.Errorf("expected no zones, got %d", len(zones))
		}
	})

	t.Run("no overlay", func(t *testing.T) {
		annotated := solid(200)
		defer annotated.Close()

		zones, err := a.Zones(annotated, annotated)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(zones) != 0 {
			t.Errorf("expected no zones, got %d", len(zones))
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		annotated := solid(0)
		defer annotated.Close()
		small := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 10, 10, gocv.MatTypeCV8UC3)
		defer small.Close()

		if _, err := a.Zones(annotated, small); err == nil {
			t.Error("expected error")
		}
	})
}
