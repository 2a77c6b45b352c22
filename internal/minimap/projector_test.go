package minimap

import (
	"errors"
	"reflect"
	"testing"

	"cartograph/internal/rectset"
	"cartograph/pkg/geometry"
)

func TestRecomputeFit(t *testing.T) {
	p := NewProjector(DefaultSize, DefaultSize)
	canvas := rectset.New(geometry.NewRect(0, 0, 100, 50))
	minimap := rectset.New()

	resample, err := p.Recompute(canvas, minimap, 100, 50, true)
	if err != nil {
		t.Fatalf("Recompute error: %v", err)
	}
	if !resample {
		t.Error("factor changed from 1 to 4 but resample = false")
	}
	if p.Factor != 4 {
		t.Errorf("Factor = %v, want 4", p.Factor)
	}
	if got, want := minimap.Rects(), []geometry.Rect{geometry.NewRect(0, 0, 400, 200)}; !reflect.DeepEqual(got, want) {
		t.Errorf("minimap = %v, want %v", got, want)
	}
	if want := geometry.NewRect(0, 0, 400, 200); p.Camera != want {
		t.Errorf("Camera = %+v, want %+v", p.Camera, want)
	}
}

func TestRecomputeOffsetBounds(t *testing.T) {
	p := NewProjector(200, 100)
	canvas := rectset.New(
		geometry.NewRect(-50, 10, 100, 50),
		geometry.NewRect(150, 60, 200, 100),
	)
	minimap := rectset.New()

	// bbox is (-50, 10, 400, 150); factor = min(200/400, 100/150) = 0.5.
	if _, err := p.Recompute(canvas, minimap, 300, 200, false); err != nil {
		t.Fatal(err)
	}
	want := []geometry.Rect{geometry.NewRect(0, 0, 50, 25), geometry.NewRect(100, 25, 100, 50)}
	if got := minimap.Rects(); !reflect.DeepEqual(got, want) {
		t.Errorf("minimap = %v, want %v", got, want)
	}
	if want := geometry.NewRect(25, -5, 150, 100); p.Camera != want {
		t.Errorf("Camera = %+v, want %+v", p.Camera, want)
	}
	if p.Factor != 1 {
		t.Errorf("Factor updated without resize: %v", p.Factor)
	}
}

func TestRecomputeResampleOnlyOnChange(t *testing.T) {
	p := NewProjector(DefaultSize, DefaultSize)
	canvas := rectset.New(geometry.NewRect(0, 0, 100, 50))
	minimap := rectset.New()

	if _, err := p.Recompute(canvas, minimap, 100, 50, true); err != nil {
		t.Fatal(err)
	}
	resample, err := p.Recompute(canvas, minimap, 100, 50, true)
	if err != nil {
		t.Fatal(err)
	}
	if resample {
		t.Error("unchanged factor requested a resample")
	}

	canvas.Translate(30, 30)
	resample, _ = p.Recompute(canvas, minimap, 100, 50, true)
	if resample {
		t.Error("translation requested a resample")
	}
	if want := geometry.NewRect(-120, -120, 400, 200); p.Camera != want {
		t.Errorf("Camera after pan = %+v, want %+v", p.Camera, want)
	}
}

func TestRecomputeEmpty(t *testing.T) {
	p := NewProjector(DefaultSize, DefaultSize)
	p.Camera = geometry.NewRect(1, 2, 3, 4)
	minimap := rectset.New(geometry.NewRect(9, 9, 9, 9))

	resample, err := p.Recompute(rectset.New(), minimap, 640, 480, true)
	if err != nil || resample {
		t.Fatalf("empty Recompute = %v, %v; want false, nil", resample, err)
	}
	if p.Camera != geometry.NewRect(1, 2, 3, 4) || minimap.Len() != 1 || p.Factor != 1 {
		t.Error("empty Recompute changed state")
	}
}

func TestRecomputeDegenerate(t *testing.T) {
	p := NewProjector(DefaultSize, DefaultSize)
	canvas := rectset.New(geometry.NewRect(10, 10, 0, 40))
	minimap := rectset.New()

	_, err := p.Recompute(canvas, minimap, 640, 480, true)
	if !errors.Is(err, ErrDegenerateGeometry) {
		t.Fatalf("error = %v, want ErrDegenerateGeometry", err)
	}
	if minimap.Len() != 0 || p.Factor != 1 || p.Camera != (geometry.Rect{}) {
		t.Error("degenerate Recompute changed state")
	}
}

func TestToCanvas(t *testing.T) {
	p := NewProjector(DefaultSize, DefaultSize)
	canvas := rectset.New(geometry.NewRect(-100, 20, 200, 100))

	x, y, ok := p.ToCanvas(200, 100, canvas)
	if !ok {
		t.Fatal("ToCanvas reported not ok")
	}
	if x != 0 || y != 70 {
		t.Errorf("ToCanvas = (%d, %d), want (0, 70)", x, y)
	}
	if _, _, ok := p.ToCanvas(0, 0, rectset.New()); ok {
		t.Error("ToCanvas on empty canvas reported ok")
	}
}
