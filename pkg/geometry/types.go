// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"image"
	"math"
)

// Point represents a 2D point in integer pixel space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pt creates a new Point.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Add returns the sum of two points.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Size represents a 2D extent in pixels.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Rect represents an axis-aligned rectangle with its top-left corner at
// (X, Y) and extent (W, H). Canvas and minimap destinations both use it.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// NewRect creates a new Rect.
func NewRect(x, y, w, h int) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Valid reports whether the rectangle has a non-negative extent.
func (r Rect) Valid() bool {
	return r.W >= 0 && r.H >= 0
}

// Empty reports whether the rectangle covers no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Right returns the x coordinate one past the right edge.
func (r Rect) Right() int {
	return r.X + r.W
}

// Bottom returns the y coordinate one past the bottom edge.
func (r Rect) Bottom() int {
	return r.Y + r.H
}

// TopLeft returns the top-left corner.
func (r Rect) TopLeft() Point {
	return Point{X: r.X, Y: r.Y}
}

// Size returns the extent of the rectangle.
func (r Rect) Size() Size {
	return Size{W: r.W, H: r.H}
}

// Contains returns true if the point is inside the rectangle.
// The right and bottom edges are exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() &&
		p.Y >= r.Y && p.Y < r.Bottom()
}

// Translate returns the rectangle moved by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Scale returns the rectangle with every component multiplied by factor
// and truncated toward zero.
func (r Rect) Scale(factor float64) Rect {
	return Rect{
		X: int(math.Trunc(float64(r.X) * factor)),
		Y: int(math.Trunc(float64(r.Y) * factor)),
		W: int(math.Trunc(float64(r.W) * factor)),
		H: int(math.Trunc(float64(r.H) * factor)),
	}
}

// Union returns the smallest rectangle containing both rectangles.
func (r Rect) Union(other Rect) Rect {
	x := min(r.X, other.X)
	y := min(r.Y, other.Y)
	x2 := max(r.Right(), other.Right())
	y2 := max(r.Bottom(), other.Bottom())
	return Rect{X: x, Y: y, W: x2 - x, H: y2 - y}
}

// Image converts to an image.Rectangle for use with image/draw.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.Right(), r.Bottom())
}

// BoundingBox computes the axis-aligned bounding box of a set of rectangles.
// The second result is false when rects is empty.
func BoundingBox(rects []Rect) (Rect, bool) {
	if len(rects) == 0 {
		return Rect{}, false
	}
	box := rects[0]
	for _, r := range rects[1:] {
		box = box.Union(r)
	}
	return box, true
}
