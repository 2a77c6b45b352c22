package geometry

import (
	"image"
	"testing"
)

func TestRectContains(t *testing.T) {
	r := NewRect(10, 20, 5, 5)
	tests := []struct {
		p    Point
		want bool
	}{
		{Pt(10, 20), true},
		{Pt(14, 24), true},
		{Pt(15, 22), false},
		{Pt(12, 25), false},
		{Pt(9, 20), false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestRectScaleTruncates(t *testing.T) {
	tests := []struct {
		r      Rect
		factor float64
		want   Rect
	}{
		{NewRect(3, 5, 7, 9), 0.5, NewRect(1, 2, 3, 4)},
		{NewRect(-3, -5, 7, 9), 0.5, NewRect(-1, -2, 3, 4)},
		{NewRect(1, 2, 3, 4), 3, NewRect(3, 6, 9, 12)},
	}
	for _, tt := range tests {
		if got := tt.r.Scale(tt.factor); got != tt.want {
			t.Errorf("%v.Scale(%v) = %v, want %v", tt.r, tt.factor, got, tt.want)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	if _, ok := BoundingBox(nil); ok {
		t.Error("BoundingBox(nil) reported a box")
	}
	got, ok := BoundingBox([]Rect{NewRect(0, 0, 10, 10), NewRect(-5, 4, 3, 20)})
	if !ok {
		t.Fatal("BoundingBox reported no box")
	}
	if want := NewRect(-5, 0, 15, 24); got != want {
		t.Errorf("BoundingBox = %v, want %v", got, want)
	}
}

func TestRectHelpers(t *testing.T) {
	r := NewRect(2, 3, 4, 5)
	if r.Right() != 6 || r.Bottom() != 8 {
		t.Errorf("Right/Bottom = %d/%d, want 6/8", r.Right(), r.Bottom())
	}
	if got := r.Translate(-2, 1); got != NewRect(0, 4, 4, 5) {
		t.Errorf("Translate = %v", got)
	}
	if got := r.Image(); got != image.Rect(2, 3, 6, 8) {
		t.Errorf("Image = %v", got)
	}
	if !NewRect(0, 0, 0, 3).Empty() || r.Empty() {
		t.Error("Empty misreports")
	}
	if NewRect(0, 0, -1, 3).Valid() {
		t.Error("negative width reported valid")
	}
	if got := Pt(1, 2).Add(Pt(3, 4)).Sub(Pt(1, 1)); got != Pt(3, 5) {
		t.Errorf("Add/Sub = %v", got)
	}
}
