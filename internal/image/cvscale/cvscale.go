// Package cvscale resamples bitmaps with OpenCV.
package cvscale

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// Name is the resampler name that selects this package in the config.
const Name = "opencv"

// Scaler resizes images through gocv.Resize.
type Scaler struct {
	// Shrink is used when the target is smaller than the source.
	Shrink gocv.InterpolationFlags
	// Grow is used otherwise.
	Grow gocv.InterpolationFlags
}

// New returns a Scaler using area interpolation to shrink and cubic to grow.
func New() *Scaler {
	return &Scaler{Shrink: gocv.InterpolationArea, Grow: gocv.InterpolationCubic}
}

// Scale implements image.Scaler.
func (s *Scaler) Scale(src image.Image, w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid scale target %dx%d", w, h)
	}
	rgba := toRGBA(src)
	b := rgba.Bounds()

	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	interp := s.Grow
	if w*h < b.Dx()*b.Dy() {
		interp = s.Shrink
	}

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(mat, &scaled, image.Point{X: w, Y: h}, 0, 0, interp)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(out.Pix, scaled.ToBytes())
	return out, nil
}

// toRGBA returns src as a tightly packed RGBA anchored at the origin.
func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	return rgba
}
