package image

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Scaler resamples an image to an exact size.
type Scaler interface {
	Scale(src image.Image, w, h int) (image.Image, error)
}

// DrawScaler resamples with one of the x/image/draw interpolators.
type DrawScaler struct {
	Interp draw.Interpolator
}

// Scale implements Scaler.
func (s DrawScaler) Scale(src image.Image, w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid scale target %dx%d", w, h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	s.Interp.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// Resampler names accepted by ScalerByName.
const (
	ResampleNearest    = "nearest"
	ResampleBilinear   = "bilinear"
	ResampleCatmullRom = "catmullrom"
)

// ScalerByName returns the x/image/draw scaler registered under name.
// An empty name selects bilinear.
func ScalerByName(name string) (Scaler, error) {
	switch name {
	case ResampleNearest:
		return DrawScaler{Interp: draw.NearestNeighbor}, nil
	case ResampleBilinear, "":
		return DrawScaler{Interp: draw.BiLinear}, nil
	case ResampleCatmullRom:
		return DrawScaler{Interp: draw.CatmullRom}, nil
	default:
		return nil, fmt.Errorf("unknown resampler %q", name)
	}
}

// ScaledSize returns the pixel size of a w×h image scaled by factor,
// truncated like layer rectangles and never smaller than one pixel.
func ScaledSize(w, h int, factor float64) (int, int) {
	return max(1, int(float64(w)*factor)), max(1, int(float64(h)*factor))
}

// ScaleBy resamples src by factor. A factor of 1 returns src unchanged.
func ScaleBy(s Scaler, src image.Image, factor float64) (image.Image, error) {
	if factor == 1 {
		return src, nil
	}
	w, h := ScaledSize(src.Bounds().Dx(), src.Bounds().Dy(), factor)
	return s.Scale(src, w, h)
}
