// Package minimap fits the canvas layers into a fixed-size overview and
// tracks where the visible canvas viewport lies inside it.
package minimap

import (
	"errors"
	"fmt"

	"cartograph/internal/rectset"
	"cartograph/pkg/geometry"
)

// DefaultSize is the side length of the square minimap viewport.
const DefaultSize = 400

// ErrDegenerateGeometry is returned when the layers span zero width or height.
var ErrDegenerateGeometry = errors.New("minimap: bounding box has zero extent")

// Projector holds the minimap viewport and the results of the last projection.
type Projector struct {
	ViewportW int
	ViewportH int

	// Factor is the scale the cached minimap bitmaps were produced at.
	Factor float64

	// Camera is the canvas viewport expressed in minimap space.
	Camera geometry.Rect
}

// NewProjector creates a projector for a w×h minimap.
func NewProjector(w, h int) *Projector {
	return &Projector{ViewportW: w, ViewportH: h, Factor: 1}
}

// Fit returns the scale that fits a w×h box inside the viewport.
func (p *Projector) Fit(w, h int) (float64, error) {
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrDegenerateGeometry, w, h)
	}
	return min(float64(p.ViewportW)/float64(w), float64(p.ViewportH)/float64(h)), nil
}

// Recompute projects canvas into minimap and updates the camera for a
// canvas viewport of canvasW×canvasH. With no layers nothing changes.
//
// The result reports whether minimap bitmaps must be resampled: only when
// resize is set and the fit factor differs from the one they were made at.
func (p *Projector) Recompute(canvas, minimap *rectset.RectSet, canvasW, canvasH int, resize bool) (bool, error) {
	bbox, ok := canvas.Bounds()
	if !ok {
		return false, nil
	}
	factor, err := p.Fit(bbox.W, bbox.H)
	if err != nil {
		return false, err
	}

	xMin, yMin := float64(bbox.X), float64(bbox.Y)
	minimap.ProjectFrom(canvas, xMin, yMin, factor)
	p.Camera = geometry.Rect{
		X: int(-xMin * factor),
		Y: int(-yMin * factor),
		W: int(float64(canvasW) * factor),
		H: int(float64(canvasH) * factor),
	}

	resample := resize && factor != p.Factor
	if resample {
		p.Factor = factor
	}
	return resample, nil
}

// Reset clears the camera and restores the unit factor.
func (p *Projector) Reset() {
	p.Factor = 1
	p.Camera = geometry.Rect{}
}

// ToCanvas converts a minimap point into canvas coordinates using the most
// recent projection of canvas.
func (p *Projector) ToCanvas(x, y int, canvas *rectset.RectSet) (int, int, bool) {
	bbox, ok := canvas.Bounds()
	if !ok || bbox.W == 0 || bbox.H == 0 {
		return 0, 0, false
	}
	factor, err := p.Fit(bbox.W, bbox.H)
	if err != nil {
		return 0, 0, false
	}
	return bbox.X + int(float64(x)/factor), bbox.Y + int(float64(y)/factor), true
}
