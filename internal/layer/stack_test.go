package layer

import (
	"errors"
	"reflect"
	"testing"

	"cartograph/pkg/geometry"
)

func newTestStack(t *testing.T, n int) *Stack {
	t.Helper()
	s := NewStack()
	for i := 0; i < n; i++ {
		s.Add(ID(i), "img.png", geometry.NewRect(0, 0, 10*(i+1), 10*(i+1)), true)
	}
	return s
}

// assertAligned checks that every parallel sequence has the stack's length.
func assertAligned(t *testing.T, s *Stack) {
	t.Helper()
	n := s.Len()
	lens := map[string]int{
		"visibility": len(s.visibility),
		"paths":      len(s.paths),
		"canvas":     s.canvas.Len(),
		"minimap":    s.minimap.Len(),
		"unscaled":   s.unscaled.Len(),
	}
	for name, l := range lens {
		if l != n {
			t.Errorf("%s has length %d, want %d", name, l, n)
		}
	}
}

func TestRenderOrderScenario(t *testing.T) {
	s := NewStack()
	if got := s.RenderOrder(); len(got) != 0 {
		t.Fatalf("empty stack render order = %v, want empty", got)
	}

	const a, b ID = 0, 1
	s.Add(a, "a.png", geometry.NewRect(0, 0, 100, 100), true)
	s.Add(b, "b.png", geometry.NewRect(0, 0, 50, 50), true)

	if got, want := s.RenderOrder(), []ID{b, a}; !reflect.DeepEqual(got, want) {
		t.Errorf("RenderOrder() = %v, want %v", got, want)
	}
	if got, _ := s.Canvas().Bounds(); got != geometry.NewRect(0, 0, 100, 100) {
		t.Errorf("bounds = %+v, want (0,0,100,100)", got)
	}

	if _, err := s.ToggleVisibility(1); err != nil {
		t.Fatal(err)
	}
	if got, want := s.RenderOrder(), []ID{a}; !reflect.DeepEqual(got, want) {
		t.Errorf("RenderOrder() after hiding b = %v, want %v", got, want)
	}
	if got, want := s.RenderIndices(), []int{0}; !reflect.DeepEqual(got, want) {
		t.Errorf("RenderIndices() = %v, want %v", got, want)
	}
	assertAligned(t, s)
}

func TestDuplicate(t *testing.T) {
	s := newTestStack(t, 3)
	if err := s.Canvas().Move(1, 5, 7); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ToggleVisibility(1); err != nil {
		t.Fatal(err)
	}

	pos, err := s.Duplicate(1, 99)
	if err != nil {
		t.Fatalf("Duplicate error: %v", err)
	}
	if pos != 1 {
		t.Errorf("Duplicate pos = %d, want 1", pos)
	}
	if got, want := s.IDs(), []ID{0, 99, 1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}

	dup, _ := s.Layer(1)
	src, _ := s.Layer(2)
	if dup.Visible != src.Visible || dup.Path != src.Path {
		t.Errorf("duplicate %+v does not copy source %+v", dup, src)
	}
	if dup.Canvas != src.Canvas || dup.Unscaled != src.Unscaled {
		t.Errorf("duplicate geometry %+v differs from source %+v", dup, src)
	}
	if s.PathRefs("img.png") != 4 {
		t.Errorf("PathRefs = %d, want 4", s.PathRefs("img.png"))
	}
	assertAligned(t, s)

	if _, err := s.Duplicate(4, 100); !errors.Is(err, ErrIndex) {
		t.Errorf("Duplicate(4) error = %v, want ErrIndex", err)
	}
}

func TestIndex(t *testing.T) {
	s := newTestStack(t, 3)
	if _, err := s.Duplicate(2, 7); err != nil {
		t.Fatal(err)
	}
	if _, err := s.MoveForward(3); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id   ID
		want int
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{7, 3},
		{5, -1},
	}
	for _, tt := range tests {
		if got := s.Index(tt.id); got != tt.want {
			t.Errorf("Index(%d) = %d, want %d (ids %v)", tt.id, got, tt.want, s.IDs())
		}
	}
}

func TestRemoveTracksReferences(t *testing.T) {
	s := NewStack()
	s.Add(0, "shared.png", geometry.NewRect(0, 0, 1, 1), true)
	s.Add(1, "shared.png", geometry.NewRect(0, 0, 1, 1), true)
	s.Add(2, "solo.png", geometry.NewRect(0, 0, 1, 1), true)

	removed, unused, err := s.Remove(0)
	if err != nil {
		t.Fatal(err)
	}
	if removed.ID != 0 || unused {
		t.Errorf("Remove(0) = id %d unused %v, want id 0 still used", removed.ID, unused)
	}

	removed, unused, err = s.Remove(1)
	if err != nil {
		t.Fatal(err)
	}
	if removed.Path != "solo.png" || !unused {
		t.Errorf("Remove(1) = %q unused %v, want solo.png unused", removed.Path, unused)
	}

	_, unused, _ = s.Remove(0)
	if !unused {
		t.Error("removing last shared.png layer did not report unused")
	}
	if s.Len() != 0 || s.PathRefs("shared.png") != 0 || s.PathRefs("solo.png") != 0 {
		t.Errorf("stack not empty: len %d refs %d/%d", s.Len(), s.PathRefs("shared.png"), s.PathRefs("solo.png"))
	}
	assertAligned(t, s)

	if _, _, err := s.Remove(0); !errors.Is(err, ErrIndex) {
		t.Errorf("Remove on empty error = %v, want ErrIndex", err)
	}
}

func TestMoveForwardBackward(t *testing.T) {
	s := newTestStack(t, 3)

	got, err := s.MoveForward(2)
	if err != nil || got != 1 {
		t.Fatalf("MoveForward(2) = %d, %v; want 1", got, err)
	}
	if ids := s.IDs(); !reflect.DeepEqual(ids, []ID{0, 2, 1}) {
		t.Errorf("IDs after forward = %v", ids)
	}
	r, _ := s.Layer(1)
	if r.Unscaled.W != 30 {
		t.Errorf("geometry did not follow id: %+v", r)
	}

	got, err = s.MoveBackward(got)
	if err != nil || got != 2 {
		t.Fatalf("MoveBackward(1) = %d, %v; want 2", got, err)
	}
	if ids := s.IDs(); !reflect.DeepEqual(ids, []ID{0, 1, 2}) {
		t.Errorf("forward then backward = %v, want original order", ids)
	}
	assertAligned(t, s)
}

func TestMoveBoundaries(t *testing.T) {
	s := newTestStack(t, 2)

	if got, err := s.MoveForward(0); err != nil || got != 0 {
		t.Errorf("MoveForward(0) = %d, %v; want no-op 0", got, err)
	}
	if got, err := s.MoveBackward(1); err != nil || got != 1 {
		t.Errorf("MoveBackward(last) = %d, %v; want no-op 1", got, err)
	}
	if ids := s.IDs(); !reflect.DeepEqual(ids, []ID{0, 1}) {
		t.Errorf("boundary moves changed order: %v", ids)
	}
	if _, err := s.MoveForward(5); !errors.Is(err, ErrIndex) {
		t.Errorf("MoveForward(5) error = %v, want ErrIndex", err)
	}
}

func TestInversePairForEveryPosition(t *testing.T) {
	for start := 0; start < 4; start++ {
		s := newTestStack(t, 4)
		id := s.IDs()[start]

		pos, _ := s.MoveForward(start)
		pos, _ = s.MoveBackward(pos)

		if start == 0 {
			// Forward was a no-op, so backward moved the layer one step back.
			if pos != 1 {
				t.Errorf("start 0: ended at %d, want 1", pos)
			}
			continue
		}
		if pos != start || s.IDs()[start] != id {
			t.Errorf("start %d: ended at %d with ids %v", start, pos, s.IDs())
		}
	}
}

func TestResolveIndex(t *testing.T) {
	tests := []struct {
		selection, length int
		want              int
		err               error
	}{
		{0, 3, 2, nil},
		{2, 3, 0, nil},
		{1, 3, 1, nil},
		{NoSelection, 3, 0, ErrNoSelection},
		{NoSelection, 0, 0, ErrNoSelection},
		{3, 3, 0, ErrIndex},
		{-2, 3, 0, ErrIndex},
		{0, 0, 0, ErrIndex},
	}
	for _, tt := range tests {
		got, err := ResolveIndex(tt.selection, tt.length)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Errorf("ResolveIndex(%d, %d) error = %v, want %v", tt.selection, tt.length, err, tt.err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ResolveIndex(%d, %d) = %d, %v; want %d", tt.selection, tt.length, got, err, tt.want)
		}
		if back := SelectionOf(got, tt.length); back != tt.selection {
			t.Errorf("SelectionOf(%d, %d) = %d, want %d", got, tt.length, back, tt.selection)
		}
	}
}

func TestReset(t *testing.T) {
	s := newTestStack(t, 3)
	s.Reset()
	if s.Len() != 0 || s.PathRefs("img.png") != 0 {
		t.Errorf("Reset left len %d refs %d", s.Len(), s.PathRefs("img.png"))
	}
	assertAligned(t, s)
}
