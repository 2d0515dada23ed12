// Package imgutil converts between image files and network tensors.
package imgutil

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/tiff"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	ts "github.com/sugarme/gotch/tensor"
	"golang.org/x/image/draw"
)

// ImageNet RGB statistics the VGG weights were trained with.
var (
	Mean = [3]float32{0.485, 0.456, 0.406}
	Std  = [3]float32{0.229, 0.224, 0.225}
)

// ReadImage reads image from file.
func ReadImage(filename string) (image.Image, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg":
		return imaging.Open(filename)
	case ".tiff", ".tif":
		f, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return tiff.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported image format: %q", ext)
	}
}

// SaveImage writes img; the format follows the file extension.
func SaveImage(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return imaging.Save(img, filename)
}

// Fit resizes img so that its longer side is size, keeping aspect ratio.
// A non-positive size returns img unchanged.
func Fit(img image.Image, size int) image.Image {
	if size <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() >= b.Dy() {
		return imaging.Resize(img, size, 0, imaging.Linear)
	}
	return imaging.Resize(img, 0, size, imaging.Linear)
}

// ToCHW returns the RGB planes of img as float32 values in [0, 1],
// channel first.
func ToCHW(img image.Image) (data []float32, h, w int) {
	b := img.Bounds()
	w, h = b.Dx(), b.Dy()
	rgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Copy(rgba, image.Point{}, img, b, draw.Src, nil)

	plane := w * h
	data = make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := rgba.NRGBAAt(x, y)
			i := y*w + x
			data[i] = float32(c.R) / 255
			data[plane+i] = float32(c.G) / 255
			data[2*plane+i] = float32(c.B) / 255
		}
	}
	return data, h, w
}

// Normalize standardizes CHW RGB data in place with Mean and Std.
func Normalize(data []float32) {
	plane := len(data) / 3
	for c := 0; c < 3; c++ {
		for i := c * plane; i < (c+1)*plane; i++ {
			data[i] = (data[i] - Mean[c]) / Std[c]
		}
	}
}

// ToTensor converts img into a normalized [1 3 H W] float tensor.
func ToTensor(img image.Image) *ts.Tensor {
	data, h, w := ToCHW(img)
	Normalize(data)
	return ts.MustOfSlice(data).MustView([]int64{1, 3, int64(h), int64(w)}, true)
}

// ProbImage maps probabilities in [0, 1] (row-major h*w) to gray levels.
func ProbImage(probs []float64, h, w int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, p := range probs[:h*w] {
		if p < 0 {
			p = 0
		} else if p > 1 {
			p = 1
		}
		img.Pix[i] = uint8(p*255 + 0.5)
	}
	return img
}

// MaskImage thresholds probabilities into a black and white mask.
func MaskImage(probs []float64, h, w int, threshold float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, p := range probs[:h*w] {
		if p > threshold {
			img.Pix[i] = 255
		}
	}
	return img
}

// ResizeMask resizes a mask to w x h without introducing gray levels.
func ResizeMask(mask *image.Gray, w, h int) *image.Gray {
	b := mask.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return mask
	}
	return toGray(resize.Resize(uint(w), uint(h), mask, resize.NearestNeighbor))
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(g, image.Point{}, img, b, draw.Src, nil)
	return g
}

// Overlay paints the foreground of mask over img in the given color at
// half opacity.
func Overlay(img image.Image, mask *image.Gray, c color.NRGBA) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(out, image.Point{}, img, b, draw.Src, nil)

	m := mask.Bounds()
	for y := 0; y < b.Dy() && y < m.Dy(); y++ {
		for x := 0; x < b.Dx() && x < m.Dx(); x++ {
			if mask.GrayAt(m.Min.X+x, m.Min.Y+y).Y == 0 {
				continue
			}
			p := out.NRGBAAt(x, y)
			out.SetNRGBA(x, y, color.NRGBA{
				R: uint8((uint16(p.R) + uint16(c.R)) / 2),
				G: uint8((uint16(p.G) + uint16(c.G)) / 2),
				B: uint8((uint16(p.B) + uint16(c.B)) / 2),
				A: 255,
			})
		}
	}
	return out
}
