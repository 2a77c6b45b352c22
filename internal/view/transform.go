// Package view implements the canvas zoom and pan transform.
package view

import (
	"fmt"
	"math"

	"cartograph/internal/rectset"
)

// DefaultMaxLevel bounds the zoom level when no limit is configured.
const DefaultMaxLevel = 16

// Transform is the zoom state of the canvas. Level 0 is the identity;
// positive levels magnify and negative levels shrink.
type Transform struct {
	Level    int
	MaxLevel int // levels are clamped to [-MaxLevel, MaxLevel]; 0 disables clamping
}

// New creates an identity transform clamped to maxLevel.
func New(maxLevel int) *Transform {
	return &Transform{MaxLevel: maxLevel}
}

// ScaleFactor maps a zoom level to its scale: ..., 1/3, 1/2, 1, 2, 3, ...
func ScaleFactor(level int) float64 {
	if level == 0 {
		return 1
	}
	f := float64(abs(level) + 1)
	if level < 0 {
		return 1 / f
	}
	return f
}

// ScaleFactor returns the scale of the current level.
func (t *Transform) ScaleFactor() float64 {
	return ScaleFactor(t.Level)
}

// Zoom adds delta to the level and returns the scale factors before and
// after the change. When the level is already at the limit old == new.
func (t *Transform) Zoom(delta int) (old, new float64) {
	old = t.ScaleFactor()
	t.Level += delta
	if t.MaxLevel > 0 {
		t.Level = max(-t.MaxLevel, min(t.Level, t.MaxLevel))
	}
	return old, t.ScaleFactor()
}

// SetLevel jumps directly to level, honouring the clamp.
func (t *Transform) SetLevel(level int) {
	t.Level = 0
	t.Zoom(level)
}

// Reset returns to level 0.
func (t *Transform) Reset() {
	t.Level = 0
}

// NudgeStep is the distance an arrow key moves a layer: one unscaled pixel
// rounded up to whole canvas pixels.
func (t *Transform) NudgeStep() int {
	return int(math.Ceil(t.ScaleFactor()))
}

// ZoomAbout rescales canvas around the anchor (ax, ay) after a zoom from
// old to new. Extents are rebuilt from unscaled so repeated zooming does not
// accumulate rounding error in the sizes.
func ZoomAbout(ax, ay int, old, new float64, canvas, unscaled *rectset.RectSet) error {
	if old == 0 {
		return fmt.Errorf("view: zero scale factor")
	}
	if err := canvas.ZoomAbout(float64(ax), float64(ay), new/old, unscaled, new); err != nil {
		return fmt.Errorf("failed to zoom canvas: %w", err)
	}
	return nil
}

// Pan translates every canvas rectangle by (dx, dy).
func Pan(dx, dy int, canvas *rectset.RectSet) {
	canvas.Translate(dx, dy)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
