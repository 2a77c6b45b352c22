// Package layer owns layer identity and ordering.
//
// A Stack keeps every per-layer sequence (ids, visibility, paths and the
// canvas, minimap and unscaled rectangles) behind one mutation API so the
// sequences can never drift apart in length or order.
package layer

import (
	"errors"
	"fmt"

	"cartograph/internal/rectset"
	"cartograph/pkg/geometry"
)

// ID identifies a layer for the lifetime of a session.
type ID int

var (
	// ErrIndex is returned for a storage index or selection outside the stack.
	ErrIndex = errors.New("layer: index out of range")

	// ErrNoSelection is returned when the selection source reports nothing selected.
	ErrNoSelection = errors.New("layer: nothing selected")
)

// NoSelection is the selection value reported when no list entry is selected.
const NoSelection = -1

// Layer is a snapshot of one entry of the stack.
type Layer struct {
	ID       ID
	Path     string
	Visible  bool
	Canvas   geometry.Rect // destination in canvas space
	Minimap  geometry.Rect // destination in minimap space
	Unscaled geometry.Rect // size at zoom level 0
}

// Stack is the authoritative ordered set of layers. Storage index 0 is the
// front-most layer; RenderOrder walks the stack from the back.
type Stack struct {
	order      []ID
	visibility []bool
	paths      []string

	canvas   *rectset.RectSet
	minimap  *rectset.RectSet
	unscaled *rectset.RectSet

	refs map[string]int
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{
		canvas:   rectset.New(),
		minimap:  rectset.New(),
		unscaled: rectset.New(),
		refs:     make(map[string]int),
	}
}

// Len returns the number of layers.
func (s *Stack) Len() int {
	return len(s.order)
}

// Canvas returns the canvas-space destinations. Callers may apply bulk
// geometry updates but must not insert or delete through it.
func (s *Stack) Canvas() *rectset.RectSet {
	return s.canvas
}

// Minimap returns the minimap-space destinations.
func (s *Stack) Minimap() *rectset.RectSet {
	return s.minimap
}

// Unscaled returns the zoom-level-0 sizes.
func (s *Stack) Unscaled() *rectset.RectSet {
	return s.unscaled
}

func (s *Stack) check(index int) error {
	if index < 0 || index >= s.Len() {
		return fmt.Errorf("%w: %d (length %d)", ErrIndex, index, s.Len())
	}
	return nil
}

// Add appends a layer to the back of the stack. The canvas and minimap
// destinations start as copies of unscaled; the caller rescales them.
func (s *Stack) Add(id ID, path string, unscaled geometry.Rect, visible bool) int {
	s.order = append(s.order, id)
	s.visibility = append(s.visibility, visible)
	s.paths = append(s.paths, path)
	s.canvas.Append(unscaled)
	s.minimap.Append(unscaled)
	s.unscaled.Append(unscaled)
	s.refs[path]++
	return s.Len() - 1
}

// AddScaled appends a layer whose canvas destination is already known.
func (s *Stack) AddScaled(id ID, path string, unscaled, canvas geometry.Rect, visible bool) int {
	pos := s.Add(id, path, unscaled, visible)
	_ = s.canvas.Set(pos, canvas)
	return pos
}

// Duplicate inserts newID directly in front of the layer at source, copying
// its path, visibility and geometry. The source moves to source+1 and the
// position of the copy is returned.
func (s *Stack) Duplicate(source int, newID ID) (int, error) {
	if err := s.check(source); err != nil {
		return 0, err
	}
	src := s.at(source)

	s.order = insertAt(s.order, source, newID)
	s.visibility = insertAt(s.visibility, source, src.Visible)
	s.paths = insertAt(s.paths, source, src.Path)
	for _, set := range []struct {
		rs *rectset.RectSet
		r  geometry.Rect
	}{
		{s.canvas, src.Canvas},
		{s.minimap, src.Minimap},
		{s.unscaled, src.Unscaled},
	} {
		if _, err := set.rs.Insert(source, set.r); err != nil {
			return 0, fmt.Errorf("failed to duplicate layer %d: %w", src.ID, err)
		}
	}
	s.refs[src.Path]++
	return source, nil
}

// Remove deletes the layer at index from every sequence. The second result
// reports whether no remaining layer references the removed layer's path.
func (s *Stack) Remove(index int) (Layer, bool, error) {
	if err := s.check(index); err != nil {
		return Layer{}, false, err
	}
	removed := s.at(index)

	s.order = deleteAt(s.order, index)
	s.visibility = deleteAt(s.visibility, index)
	s.paths = deleteAt(s.paths, index)
	for _, rs := range []*rectset.RectSet{s.canvas, s.minimap, s.unscaled} {
		if err := rs.Delete(index); err != nil {
			return Layer{}, false, fmt.Errorf("failed to remove layer %d: %w", removed.ID, err)
		}
	}

	s.refs[removed.Path]--
	unused := s.refs[removed.Path] <= 0
	if unused {
		delete(s.refs, removed.Path)
	}
	return removed, unused, nil
}

// MoveForward swaps the layer at index with its front neighbour (index-1).
// At the front it is a no-op. The layer's new index is returned.
func (s *Stack) MoveForward(index int) (int, error) {
	if err := s.check(index); err != nil {
		return 0, err
	}
	if index == 0 {
		return index, nil
	}
	return index - 1, s.swap(index, index-1)
}

// MoveBackward swaps the layer at index with its back neighbour (index+1).
// At the back it is a no-op. The layer's new index is returned.
func (s *Stack) MoveBackward(index int) (int, error) {
	if err := s.check(index); err != nil {
		return 0, err
	}
	if index+1 >= s.Len() {
		return index, nil
	}
	return index + 1, s.swap(index, index+1)
}

func (s *Stack) swap(i, j int) error {
	s.order[i], s.order[j] = s.order[j], s.order[i]
	s.visibility[i], s.visibility[j] = s.visibility[j], s.visibility[i]
	s.paths[i], s.paths[j] = s.paths[j], s.paths[i]
	for _, rs := range []*rectset.RectSet{s.canvas, s.minimap, s.unscaled} {
		if err := rs.Swap(i, j); err != nil {
			return err
		}
	}
	return nil
}

// ToggleVisibility flips the visibility of the layer at index and returns
// the new value.
func (s *Stack) ToggleVisibility(index int) (bool, error) {
	if err := s.check(index); err != nil {
		return false, err
	}
	s.visibility[index] = !s.visibility[index]
	return s.visibility[index], nil
}

// RenderOrder returns the ids of visible layers, back to front.
func (s *Stack) RenderOrder() []ID {
	out := make([]ID, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if s.visibility[i] {
			out = append(out, s.order[i])
		}
	}
	return out
}

// RenderIndices is RenderOrder expressed as storage indices.
func (s *Stack) RenderIndices() []int {
	out := make([]int, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if s.visibility[i] {
			out = append(out, i)
		}
	}
	return out
}

// Layer returns the layer at index.
func (s *Stack) Layer(index int) (Layer, error) {
	if err := s.check(index); err != nil {
		return Layer{}, err
	}
	return s.at(index), nil
}

func (s *Stack) at(index int) Layer {
	c, _ := s.canvas.Get(index)
	m, _ := s.minimap.Get(index)
	u, _ := s.unscaled.Get(index)
	return Layer{
		ID:       s.order[index],
		Path:     s.paths[index],
		Visible:  s.visibility[index],
		Canvas:   c,
		Minimap:  m,
		Unscaled: u,
	}
}

// Index returns the storage index of id, or -1.
func (s *Stack) Index(id ID) int {
	for i, v := range s.order {
		if v == id {
			return i
		}
	}
	return -1
}

// IDs returns the layer ids in storage order.
func (s *Stack) IDs() []ID {
	return append([]ID(nil), s.order...)
}

// PathRefs returns how many layers reference path.
func (s *Stack) PathRefs(path string) int {
	return s.refs[path]
}

// Reset removes every layer.
func (s *Stack) Reset() {
	s.order = s.order[:0]
	s.visibility = s.visibility[:0]
	s.paths = s.paths[:0]
	s.canvas.Reset()
	s.minimap.Reset()
	s.unscaled.Reset()
	s.refs = make(map[string]int)
}

func insertAt[T any](seq []T, pos int, v T) []T {
	var zero T
	seq = append(seq, zero)
	copy(seq[pos+1:], seq[pos:])
	seq[pos] = v
	return seq
}

func deleteAt[T any](seq []T, pos int) []T {
	return append(seq[:pos], seq[pos+1:]...)
}
