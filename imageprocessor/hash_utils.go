package imageprocessor

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"strings"

	apperrors "imagefingerprint/errors"
	"imagefingerprint/types"

	"gocv.io/x/gocv"
)

// resizeExact scales img to exactly size x size, ignoring the aspect ratio
func resizeExact(img gocv.Mat, size int) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), apperrors.ErrEmptyImage
	}

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Point{X: size, Y: size}, 0, 0, gocv.InterpolationArea)
	if resized.Empty() {
		resized.Close()
		return gocv.NewMat(), fmt.Errorf("resize to %dx%d produced an empty image", size, size)
	}
	return resized, nil
}

// grayAt returns img resized to size x size as a single channel intensity image
func grayAt(img gocv.Mat, size int) (gocv.Mat, error) {
	resized, err := resizeExact(img, size)
	if err != nil {
		return resized, err
	}
	if resized.Channels() == 1 {
		return resized, nil
	}
	defer resized.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(resized, &gray, gocv.ColorBGRToGray)
	return gray, nil
}

// ComputeColorHash calculates the mean-threshold hash over a size x size grid.
// Each cell is the plain average of its three channels; a bit is set when the
// cell is strictly brighter than the grid mean.
func ComputeColorHash(img gocv.Mat, size int) (string, error) {
	resized, err := resizeExact(img, size)
	if err != nil {
		return "", err
	}
	defer resized.Close()

	values := make([]float64, 0, size*size)
	var sum float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			var v float64
			if resized.Channels() == 1 {
				v = float64(resized.GetUCharAt(y, x))
			} else {
				px := resized.GetVecbAt(y, x)
				v = (float64(px[0]) + float64(px[1]) + float64(px[2])) / 3
			}
			values = append(values, v)
			sum += v
		}
	}
	mean := sum / float64(len(values))

	var sb strings.Builder
	sb.Grow(len(values))
	for _, v := range values {
		if v > mean {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String(), nil
}

// ComputeStructureHash calculates the horizontal gradient hash. The image is
// reduced to size x size intensities and each row yields size-1 bits, set
// when the left pixel is brighter than its right neighbour.
func ComputeStructureHash(img gocv.Mat, size int) (string, error) {
	gray, err := grayAt(img, size)
	if err != nil {
		return "", err
	}
	defer gray.Close()

	var sb strings.Builder
	sb.Grow(size * (size - 1))
	for y := 0; y < size; y++ {
		for x := 0; x < size-1; x++ {
			if gray.GetUCharAt(y, x) > gray.GetUCharAt(y, x+1) {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String(), nil
}

// ComputeEdgeHash marks interior pixels of a size x size intensity image whose
// summed absolute difference to the four direct neighbours exceeds threshold.
func ComputeEdgeHash(img gocv.Mat, size, threshold int) (string, error) {
	gray, err := grayAt(img, size)
	if err != nil {
		return "", err
	}
	defer gray.Close()

	at := func(y, x int) int { return int(gray.GetUCharAt(y, x)) }

	var sb strings.Builder
	sb.Grow((size - 2) * (size - 2))
	for y := 1; y < size-1; y++ {
		for x := 1; x < size-1; x++ {
			c := at(y, x)
			sum := absInt(c-at(y, x-1)) + absInt(c-at(y, x+1)) +
				absInt(c-at(y-1, x)) + absInt(c-at(y+1, x))
			if sum > threshold {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String(), nil
}

// ComputeContentHash returns the hex MD5 of the raw file bytes
func ComputeContentHash(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.ErrEmptyInput
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// ComputeAverageColor reduces the image to a single pixel
func ComputeAverageColor(img gocv.Mat) (types.RGB, error) {
	px, err := resizeExact(img, 1)
	if err != nil {
		return types.RGB{}, err
	}
	defer px.Close()

	if px.Channels() == 1 {
		v := px.GetUCharAt(0, 0)
		return types.RGB{R: v, G: v, B: v}, nil
	}
	bgr := px.GetVecbAt(0, 0)
	return types.RGB{R: bgr[2], G: bgr[1], B: bgr[0]}, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
