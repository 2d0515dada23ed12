package base

import (
	"math"

	ts "github.com/sugarme/gotch/tensor"
)

// CropWindow returns the amounts to add before and after a dimension of
// size src so that it becomes dst. Negative amounts crop.
//
// When src-dst is odd the extra pixel is taken from the trailing edge.
func CropWindow(src, dst int64) (before, after int64) {
	d := float64(dst-src) / 2
	return int64(math.Ceil(d)), int64(math.Floor(d))
}

// CenterCrop crops a [B C H W] tensor to [B C h w] around its center.
// A source smaller than the target is zero-padded by the same window.
func CenterCrop(x *ts.Tensor, h, w int64) *ts.Tensor {
	size := x.MustSize()
	n := len(size)
	top, bottom := CropWindow(size[n-2], h)
	left, right := CropWindow(size[n-1], w)

	return x.MustConstantPadNd([]int64{left, right, top, bottom}, false)
}

// Upsample resizes a [B C H W] tensor to [B C H*factor W*factor]
// with bilinear interpolation. With alignCorners the corner pixels of
// input and output are aligned, otherwise their centers are (half-pixel
// sampling).
func Upsample(x *ts.Tensor, factor int64, alignCorners bool) *ts.Tensor {
	size := x.MustSize()
	outSize := []int64{size[2] * factor, size[3] * factor}

	return x.MustUpsampleBilinear2d(outSize, alignCorners, nil, nil, false)
}
