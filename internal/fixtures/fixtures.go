// Package fixtures provides landmark sets and synthetic hand images for tests.
package fixtures

import (
	"embed"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/Furulango/handseg/internal/detector"
)

//go:embed hands/*.json
var handsFS embed.FS

// Skin is the fill color of synthetic hands.
var Skin = color.RGBA{R: 220, G: 190, B: 170, A: 255}

var fingerChains = [][]int{
	{detector.Wrist, detector.ThumbCMC, detector.ThumbMCP, detector.ThumbIP, detector.ThumbTip},
	{detector.IndexMCP, detector.IndexPIP, detector.IndexDIP, detector.IndexTip},
	{detector.MiddleMCP, detector.MiddlePIP, detector.MiddleDIP, detector.MiddleTip},
	{detector.RingMCP, detector.RingPIP, detector.RingDIP, detector.RingTip},
	{detector.PinkyMCP, detector.PinkyPIP, detector.PinkyDIP, detector.PinkyTip},
}

var palm = []int{
	detector.Wrist, detector.ThumbCMC, detector.IndexMCP, detector.MiddleMCP,
	detector.RingMCP, detector.PinkyMCP,
}

// Raw returns the JSON of a landmark fixture, e.g. "open_palm".
func Raw(name string) ([]byte, error) {
	data, err := handsFS.ReadFile("hands/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load fixture %s: %w", name, err)
	}
	return data, nil
}

// Hands loads and parses a landmark fixture.
func Hands(name string) ([]detector.HandLandmarks, error) {
	data, err := Raw(name)
	if err != nil {
		return nil, err
	}
	return detector.ParseHands(data)
}

// HandImage renders a bright silhouette of every hand on a black BGR image:
// a filled palm polygon and thick strokes along each finger. The caller must
// close the returned Mat.
func HandImage(width, height int, hands []detector.HandLandmarks) gocv.Mat {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)

	thickness := width / 25
	if thickness < 2 {
		thickness = 2
	}

	for i := range hands {
		set := hands[i].Pixels(width, height)

		pv := gocv.NewPointsVectorFromPoints([][]image.Point{set.Select(palm...)})
		gocv.FillPoly(&img, pv, Skin)
		pv.Close()

		for _, chain := range fingerChains {
			pts := set.Select(chain...)
			for j := 1; j < len(pts); j++ {
				gocv.Line(&img, pts[j-1], pts[j], Skin, thickness)
			}
			gocv.Circle(&img, pts[len(pts)-1], thickness/2, Skin, -1)
		}
	}
	return img
}

// HandPNG renders HandImage and encodes it as PNG.
func HandPNG(width, height int, hands []detector.HandLandmarks) ([]byte, error) {
	img := HandImage(width, height, hands)
	defer img.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("encode fixture: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
