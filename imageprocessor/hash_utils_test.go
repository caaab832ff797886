package imageprocessor

import (
	"image/color"
	"strings"
	"testing"

	"gocv.io/x/gocv"
)

func TestComputeColorHash_Golden(t *testing.T) {
	img := newTestMat(t, 8, 8, topHalfWhite)
	defer img.Close()

	hash, err := ComputeColorHash(img, 8)
	if err != nil {
		t.Fatalf("ComputeColorHash failed: %v", err)
	}

	// mean is 127.5, so exactly the white cells are set, in row-major order
	expected := strings.Repeat("1", 32) + strings.Repeat("0", 32)
	if hash != expected {
		t.Errorf("Expected %s, got %s", expected, hash)
	}
}

func TestComputeColorHash_Checkerboard(t *testing.T) {
	img := newTestMat(t, 8, 8, func(x, y int) color.RGBA {
		if (x+y)%2 == 0 {
			return color.RGBA{255, 255, 255, 255}
		}
		return color.RGBA{0, 0, 0, 255}
	})
	defer img.Close()

	hash, err := ComputeColorHash(img, 8)
	if err != nil {
		t.Fatalf("ComputeColorHash failed: %v", err)
	}

	var sb strings.Builder
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if (x+y)%2 == 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	if hash != sb.String() {
		t.Errorf("Expected %s, got %s", sb.String(), hash)
	}
}

func TestComputeColorHash_UniformIsAllZero(t *testing.T) {
	img := newTestMat(t, 8, 8, uniform(color.RGBA{90, 90, 90, 255}))
	defer img.Close()

	hash, err := ComputeColorHash(img, 8)
	if err != nil {
		t.Fatalf("ComputeColorHash failed: %v", err)
	}
	if hash != strings.Repeat("0", 64) {
		t.Errorf("Expected no bits above a uniform mean, got %s", hash)
	}
}

func TestComputeStructureHash_Gradients(t *testing.T) {
	tests := []struct {
		name string
		fn   pixelFunc
		want string
	}{
		{
			name: "darkening to the right",
			fn: func(x, y int) color.RGBA {
				v := uint8(255 - x*15)
				return color.RGBA{v, v, v, 255}
			},
			want: strings.Repeat("1", 240),
		},
		{
			name: "brightening to the right",
			fn: func(x, y int) color.RGBA {
				v := uint8(x * 15)
				return color.RGBA{v, v, v, 255}
			},
			want: strings.Repeat("0", 240),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := newTestMat(t, 16, 16, tt.fn)
			defer img.Close()

			hash, err := ComputeStructureHash(img, 16)
			if err != nil {
				t.Fatalf("ComputeStructureHash failed: %v", err)
			}
			if hash != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, hash)
			}
		})
	}
}

func TestComputeEdgeHash(t *testing.T) {
	flat := newTestMat(t, 32, 32, uniform(color.RGBA{200, 200, 200, 255}))
	defer flat.Close()

	hash, err := ComputeEdgeHash(flat, 32, 30)
	if err != nil {
		t.Fatalf("ComputeEdgeHash failed: %v", err)
	}
	if hash != strings.Repeat("0", 900) {
		t.Errorf("Expected a flat image to have no edges")
	}

	// a vertical black/white boundary between columns 15 and 16
	split := newTestMat(t, 32, 32, func(x, y int) color.RGBA {
		if x < 16 {
			return color.RGBA{0, 0, 0, 255}
		}
		return color.RGBA{255, 255, 255, 255}
	})
	defer split.Close()

	hash, err = ComputeEdgeHash(split, 32, 30)
	if err != nil {
		t.Fatalf("ComputeEdgeHash failed: %v", err)
	}
	if len(hash) != 900 {
		t.Fatalf("Expected 900 bits, got %d", len(hash))
	}
	// two interior columns touch the boundary, 30 rows each
	if got := countOnes(hash); got != 60 {
		t.Errorf("Expected 60 edge bits, got %d", got)
	}
	// row 0 of the interior grid: columns 1..30, boundary pixels at x=15 and x=16
	row := hash[:30]
	if row[14] != '1' || row[15] != '1' {
		t.Errorf("Expected boundary columns set in %s", row)
	}
}

func TestHashLengths_ArbitrarySize(t *testing.T) {
	img := newTestMat(t, 53, 37, noise)
	defer img.Close()

	opts := DefaultHashOptions()

	colorHash, err := ComputeColorHash(img, opts.ColorSize)
	if err != nil {
		t.Fatalf("ComputeColorHash failed: %v", err)
	}
	structureHash, err := ComputeStructureHash(img, opts.StructureSize)
	if err != nil {
		t.Fatalf("ComputeStructureHash failed: %v", err)
	}
	edgeHash, err := ComputeEdgeHash(img, opts.EdgeSize, opts.EdgeThreshold)
	if err != nil {
		t.Fatalf("ComputeEdgeHash failed: %v", err)
	}

	if len(colorHash) != 64 || len(structureHash) != 240 || len(edgeHash) != 900 {
		t.Errorf("Unexpected lengths: color=%d structure=%d edge=%d",
			len(colorHash), len(structureHash), len(edgeHash))
	}
}

func TestHashes_EmptyImage(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	if _, err := ComputeColorHash(empty, 8); err == nil {
		t.Error("Expected error for empty image in color hash")
	}
	if _, err := ComputeStructureHash(empty, 16); err == nil {
		t.Error("Expected error for empty image in structure hash")
	}
	if _, err := ComputeEdgeHash(empty, 32, 30); err == nil {
		t.Error("Expected error for empty image in edge hash")
	}
	if _, err := ComputeAverageColor(empty); err == nil {
		t.Error("Expected error for empty image in average color")
	}
}

func TestComputeContentHash(t *testing.T) {
	hash, err := ComputeContentHash([]byte("abc"))
	if err != nil {
		t.Fatalf("ComputeContentHash failed: %v", err)
	}
	if hash != "900150983cd24fb0d6963f7d28e17f72" {
		t.Errorf("Unexpected MD5: %s", hash)
	}

	if _, err := ComputeContentHash(nil); err == nil {
		t.Error("Expected error for empty input")
	}
}

func TestComputeAverageColor(t *testing.T) {
	img := newTestMat(t, 20, 10, uniform(color.RGBA{10, 20, 30, 255}))
	defer img.Close()

	avg, err := ComputeAverageColor(img)
	if err != nil {
		t.Fatalf("ComputeAverageColor failed: %v", err)
	}
	if avg.R != 10 || avg.G != 20 || avg.B != 30 {
		t.Errorf("Expected (10,20,30), got (%d,%d,%d)", avg.R, avg.G, avg.B)
	}
}
