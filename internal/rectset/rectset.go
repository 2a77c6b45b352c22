// Package rectset provides a dense, ordered collection of rectangles stored
// column-wise so that whole-set affine updates run as vector operations.
package rectset

import (
	"errors"
	"fmt"
	"math"

	"cartograph/pkg/geometry"

	"gonum.org/v1/gonum/floats"
)

// ErrIndex is returned when an index falls outside the set.
var ErrIndex = errors.New("rectset: index out of range")

// IndexError describes a rejected index.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("rectset: index %d out of range for length %d", e.Index, e.Len)
}

// Unwrap allows errors.Is(err, ErrIndex).
func (e *IndexError) Unwrap() error {
	return ErrIndex
}

// RectSet is an ordered sequence of rectangles. Each component lives in
// its own column. Extents are integral; positions may keep a fraction
// after ZoomAbout and are truncated when read back.
//
// Indices may be negative, in which case they count from the end:
// -1 is the last element, -Len() the first.
type RectSet struct {
	X []float64
	Y []float64
	W []float64
	H []float64
}

// New creates a RectSet holding the given rectangles.
func New(rects ...geometry.Rect) *RectSet {
	s := &RectSet{
		X: make([]float64, 0, len(rects)),
		Y: make([]float64, 0, len(rects)),
		W: make([]float64, 0, len(rects)),
		H: make([]float64, 0, len(rects)),
	}
	for _, r := range rects {
		s.Append(r)
	}
	return s
}

// Len returns the number of rectangles.
func (s *RectSet) Len() int {
	return len(s.X)
}

// resolve maps a possibly negative index to a position in [0, Len()).
func (s *RectSet) resolve(index int) (int, error) {
	n := s.Len()
	pos := index
	if index < 0 {
		pos = n + index
	}
	if pos < 0 || pos >= n {
		return 0, &IndexError{Index: index, Len: n}
	}
	return pos, nil
}

// Append adds a rectangle to the end of the set.
func (s *RectSet) Append(r geometry.Rect) {
	s.X = append(s.X, float64(r.X))
	s.Y = append(s.Y, float64(r.Y))
	s.W = append(s.W, float64(r.W))
	s.H = append(s.H, float64(r.H))
}

// Insert places r so that it ends up before the element currently at index.
// Negative indices count from the end, so Insert(-1, r) places r just before
// the last element. An index of Len()+1 or -(Len()+1) is clamped to the end
// or the front respectively; anything further out is rejected.
// The resolved position of the new rectangle is returned.
func (s *RectSet) Insert(index int, r geometry.Rect) (int, error) {
	n := s.Len()
	if index > n+1 || index < -(n+1) {
		return 0, &IndexError{Index: index, Len: n}
	}
	pos := index
	if index < 0 {
		pos = n + index
	}
	pos = max(0, min(pos, n))

	s.X = insertAt(s.X, pos, float64(r.X))
	s.Y = insertAt(s.Y, pos, float64(r.Y))
	s.W = insertAt(s.W, pos, float64(r.W))
	s.H = insertAt(s.H, pos, float64(r.H))
	return pos, nil
}

func insertAt(col []float64, pos int, v float64) []float64 {
	col = append(col, 0)
	copy(col[pos+1:], col[pos:])
	col[pos] = v
	return col
}

// Delete removes the rectangle at index.
func (s *RectSet) Delete(index int) error {
	pos, err := s.resolve(index)
	if err != nil {
		return err
	}
	s.X = append(s.X[:pos], s.X[pos+1:]...)
	s.Y = append(s.Y[:pos], s.Y[pos+1:]...)
	s.W = append(s.W[:pos], s.W[pos+1:]...)
	s.H = append(s.H[:pos], s.H[pos+1:]...)
	return nil
}

// Get returns the rectangle at index.
func (s *RectSet) Get(index int) (geometry.Rect, error) {
	pos, err := s.resolve(index)
	if err != nil {
		return geometry.Rect{}, err
	}
	return s.at(pos), nil
}

func (s *RectSet) at(pos int) geometry.Rect {
	return geometry.Rect{
		X: int(s.X[pos]),
		Y: int(s.Y[pos]),
		W: int(s.W[pos]),
		H: int(s.H[pos]),
	}
}

// Set replaces the rectangle at index.
func (s *RectSet) Set(index int, r geometry.Rect) error {
	pos, err := s.resolve(index)
	if err != nil {
		return err
	}
	s.X[pos] = float64(r.X)
	s.Y[pos] = float64(r.Y)
	s.W[pos] = float64(r.W)
	s.H[pos] = float64(r.H)
	return nil
}

// Move translates the rectangle at index by (dx, dy). Coordinates are not
// clamped and may leave the canvas.
func (s *RectSet) Move(index, dx, dy int) error {
	pos, err := s.resolve(index)
	if err != nil {
		return err
	}
	s.X[pos] += float64(dx)
	s.Y[pos] += float64(dy)
	return nil
}

// Swap exchanges the rectangles at i and j.
func (s *RectSet) Swap(i, j int) error {
	pi, err := s.resolve(i)
	if err != nil {
		return err
	}
	pj, err := s.resolve(j)
	if err != nil {
		return err
	}
	if pi == pj {
		return nil
	}
	s.X[pi], s.X[pj] = s.X[pj], s.X[pi]
	s.Y[pi], s.Y[pj] = s.Y[pj], s.Y[pi]
	s.W[pi], s.W[pj] = s.W[pj], s.W[pi]
	s.H[pi], s.H[pj] = s.H[pj], s.H[pi]
	return nil
}

// Rects returns a copy of the set as a slice.
func (s *RectSet) Rects() []geometry.Rect {
	out := make([]geometry.Rect, s.Len())
	for i := range out {
		out[i] = s.at(i)
	}
	return out
}

// Clone returns a deep copy.
func (s *RectSet) Clone() *RectSet {
	return &RectSet{
		X: append([]float64(nil), s.X...),
		Y: append([]float64(nil), s.Y...),
		W: append([]float64(nil), s.W...),
		H: append([]float64(nil), s.H...),
	}
}

// Reset removes every rectangle.
func (s *RectSet) Reset() {
	s.X = s.X[:0]
	s.Y = s.Y[:0]
	s.W = s.W[:0]
	s.H = s.H[:0]
}

// Translate moves every rectangle by (dx, dy).
func (s *RectSet) Translate(dx, dy int) {
	if s.Len() == 0 {
		return
	}
	floats.AddConst(float64(dx), s.X)
	floats.AddConst(float64(dy), s.Y)
}

// ZoomAbout rescales the set around the anchor (ax, ay). Positions follow
// x' = ax - k*(ax - x) and keep their fractional part, so zooming out and
// back in returns a rectangle to where it started. Extents are recomputed
// from base, the unscaled sizes, as w' = base.w * factor and truncated.
// base must have the same length as s.
func (s *RectSet) ZoomAbout(ax, ay, k float64, base *RectSet, factor float64) error {
	if base.Len() != s.Len() {
		return fmt.Errorf("rectset: zoom base has %d rects, want %d", base.Len(), s.Len())
	}
	if s.Len() == 0 {
		return nil
	}
	anchorScale(s.X, ax, k)
	anchorScale(s.Y, ay, k)
	floats.ScaleTo(s.W, factor, base.W)
	floats.ScaleTo(s.H, factor, base.H)
	truncate(s.W, s.H)
	return nil
}

// anchorScale computes col = a - k*(a - col) in place.
func anchorScale(col []float64, a, k float64) {
	floats.AddConst(-a, col)
	floats.Scale(k, col)
	floats.AddConst(a, col)
}

// ProjectFrom overwrites s with src shifted by (-xMin, -yMin) and scaled by
// factor: x' = (x - xMin) * factor, w' = w * factor. s is resized to match src.
func (s *RectSet) ProjectFrom(src *RectSet, xMin, yMin, factor float64) {
	n := src.Len()
	s.X = resize(s.X, n)
	s.Y = resize(s.Y, n)
	s.W = resize(s.W, n)
	s.H = resize(s.H, n)
	if n == 0 {
		return
	}

	copy(s.X, src.X)
	copy(s.Y, src.Y)
	truncate(s.X, s.Y)
	floats.AddConst(-xMin, s.X)
	floats.AddConst(-yMin, s.Y)
	floats.Scale(factor, s.X)
	floats.Scale(factor, s.Y)
	floats.ScaleTo(s.W, factor, src.W)
	floats.ScaleTo(s.H, factor, src.H)
	truncate(s.X, s.Y, s.W, s.H)
}

func resize(col []float64, n int) []float64 {
	if cap(col) >= n {
		return col[:n]
	}
	return make([]float64, n)
}

// Bounds returns the bounding box of every rectangle in the set, as read
// back through Get.
// The second result is false when the set is empty.
func (s *RectSet) Bounds() (geometry.Rect, bool) {
	n := s.Len()
	if n == 0 {
		return geometry.Rect{}, false
	}
	xs := append([]float64(nil), s.X...)
	ys := append([]float64(nil), s.Y...)
	truncate(xs, ys)
	right := make([]float64, n)
	bottom := make([]float64, n)
	floats.AddTo(right, xs, s.W)
	floats.AddTo(bottom, ys, s.H)

	xMin := floats.Min(xs)
	yMin := floats.Min(ys)
	return geometry.Rect{
		X: int(xMin),
		Y: int(yMin),
		W: int(floats.Max(right) - xMin),
		H: int(floats.Max(bottom) - yMin),
	}, true
}

// truncate drops the fractional parts of cols.
func truncate(cols ...[]float64) {
	for _, col := range cols {
		for i, v := range col {
			col[i] = math.Trunc(v)
		}
	}
}
