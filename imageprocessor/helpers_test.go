package imageprocessor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"gocv.io/x/gocv"
)

type pixelFunc func(x, y int) color.RGBA

// newTestMat builds a BGR Mat of the given size
func newTestMat(t *testing.T, width, height int, fn pixelFunc) gocv.Mat {
	t.Helper()
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := fn(x, y)
			mat.SetUCharAt3(y, x, 0, c.B)
			mat.SetUCharAt3(y, x, 1, c.G)
			mat.SetUCharAt3(y, x, 2, c.R)
		}
	}
	return mat
}

// encodeTestPNG returns PNG bytes of the given size
func encodeTestPNG(t *testing.T, width, height int, fn pixelFunc) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fn(x, y))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func uniform(c color.RGBA) pixelFunc {
	return func(x, y int) color.RGBA { return c }
}

// topHalfWhite is white in the upper half of an 8 row image and black below
func topHalfWhite(x, y int) color.RGBA {
	if y < 4 {
		return color.RGBA{255, 255, 255, 255}
	}
	return color.RGBA{0, 0, 0, 255}
}

// noise is a deterministic non-uniform pattern
func noise(x, y int) color.RGBA {
	v := uint8((x*37 + y*91 + x*y*13) % 256)
	return color.RGBA{v, 255 - v, uint8((x * 7) % 256), 255}
}

func countOnes(bits string) int {
	n := 0
	for _, b := range bits {
		if b == '1' {
			n++
		}
	}
	return n
}
