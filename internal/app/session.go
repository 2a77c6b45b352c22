// Package app provides the editing session: the layer stack, view, minimap
// and bitmap cache of one open map, plus its lifecycle and events.
package app

import (
	"errors"
	"fmt"
	goimage "image"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"cartograph/internal/config"
	"cartograph/internal/image"
	"cartograph/internal/layer"
	"cartograph/internal/minimap"
	"cartograph/internal/view"
	"cartograph/pkg/geometry"
)

// RenderItem is one bitmap to blit at a destination rectangle.
type RenderItem struct {
	ID     layer.ID
	Dest   geometry.Rect
	Bitmap goimage.Image
}

// LayerInfo describes a layer for the properties panel.
type LayerInfo struct {
	ID      layer.ID
	Name    string
	X, Y    int
	Z       int // storage depth, 0 is the front-most layer
	W, H    int
	File    string
	Visible bool
}

// Session holds the state of the open map.
type Session struct {
	mu sync.Mutex

	stack     *layer.Stack
	view      *view.Transform
	projector *minimap.Projector
	cache     *image.Cache
	scaler    image.Scaler

	counter layer.ID

	tempRoot string
	tempDir  string
	savePath string
	modified bool

	canvasW, canvasH int

	lmu       sync.RWMutex
	listeners map[EventType][]EventListener
	pending   []pendingEvent
}

// NewSession creates an empty session configured by cfg. scaler resamples
// cached bitmaps; nil selects bilinear.
func NewSession(cfg config.Config, scaler image.Scaler) (*Session, error) {
	s := &Session{
		stack:     layer.NewStack(),
		view:      view.New(cfg.Zoom.MaxLevel),
		projector: minimap.NewProjector(cfg.Minimap.Width, cfg.Minimap.Height),
		cache:     image.NewCache(scaler),
		scaler:    scaler,
		tempRoot:  cfg.TempDir,
		canvasW:   cfg.Canvas.Width,
		canvasH:   cfg.Canvas.Height,
		listeners: make(map[EventType][]EventListener),
	}
	dir, err := s.newTempDir()
	if err != nil {
		return nil, err
	}
	s.tempDir = dir
	log.Printf("Session: staging images in %s", dir)
	return s, nil
}

func (s *Session) newTempDir() (string, error) {
	dir, err := os.MkdirTemp(s.tempRoot, "cartograph-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	return dir, nil
}

// Close removes the staged images. The session must not be used afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tempDir == "" {
		return nil
	}
	err := os.RemoveAll(s.tempDir)
	s.tempDir = ""
	return err
}

// Reset discards every layer and starts a new, unsaved map.
func (s *Session) Reset() error {
	return s.do(func() error {
		dir, err := s.newTempDir()
		if err != nil {
			return err
		}
		s.discardTempDir()
		s.tempDir = dir

		s.stack.Reset()
		s.cache.Reset()
		s.view.Reset()
		s.projector.Reset()
		s.counter = 0
		s.savePath = ""
		s.setModified(false)
		s.queue(EventMapLoaded, "")
		return nil
	})
}

func (s *Session) discardTempDir() {
	if s.tempDir == "" {
		return
	}
	if err := os.RemoveAll(s.tempDir); err != nil {
		log.Printf("Session: failed to remove %s: %v", s.tempDir, err)
	}
}

// TempDir returns the directory layer images are staged in.
func (s *Session) TempDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tempDir
}

// SavePath returns the file the map was last saved to or opened from.
func (s *Session) SavePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savePath
}

// Modified reports whether the map has unsaved changes.
func (s *Session) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

func (s *Session) setModified(modified bool) {
	if s.modified == modified {
		return
	}
	s.modified = modified
	s.queue(EventModified, modified)
}

// Len returns the number of layers.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stack.Len()
}

// resolve maps a selection to a storage index. ok is false, with no error,
// when nothing is selected.
func (s *Session) resolve(selection int) (index int, ok bool, err error) {
	index, err = layer.ResolveIndex(selection, s.stack.Len())
	if errors.Is(err, layer.ErrNoSelection) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return index, true, nil
}

// minimapScale is the factor minimap bitmaps are resampled to: unscaled
// pixels to canvas pixels to minimap pixels.
func (s *Session) minimapScale() float64 {
	return s.projector.Factor * s.view.ScaleFactor()
}

// updateMinimap reprojects the minimap from the canvas. Degenerate layouts
// keep the previous projection.
func (s *Session) updateMinimap(resize bool) {
	resample, err := s.projector.Recompute(s.stack.Canvas(), s.stack.Minimap(), s.canvasW, s.canvasH, resize)
	if err != nil {
		log.Printf("Session: minimap not updated: %v", err)
		return
	}
	if resample {
		if err := s.cache.RescaleMinimaps(s.minimapScale()); err != nil {
			log.Printf("Session: %v", err)
		}
	}
	s.queue(EventMinimapChanged, s.projector.Camera)
}

// AddLayer imports the image at path as a new visible layer at the back of
// the stack. The file is copied into the staging directory under the new
// layer's id. The new layer's selection is returned.
func (s *Session) AddLayer(path string) (int, error) {
	selection := layer.NoSelection
	err := s.do(func() error {
		id := s.counter
		staged := filepath.Join(s.tempDir, strconv.Itoa(int(id))+strings.ToLower(filepath.Ext(path)))
		if err := copyFile(path, staged); err != nil {
			return fmt.Errorf("failed to import %s: %w", filepath.Base(path), err)
		}

		bm, err := s.cache.Acquire(staged, s.minimapScale())
		if err != nil {
			os.Remove(staged)
			return fmt.Errorf("failed to import %s: %w", filepath.Base(path), err)
		}

		unscaled := bm.Rect()
		pos := s.stack.AddScaled(id, staged, unscaled, unscaled.Scale(s.view.ScaleFactor()), true)
		s.counter++
		log.Printf("Session: added layer %d (%dx%d) from %s", id, unscaled.W, unscaled.H, path)

		s.updateMinimap(true)
		selection = layer.SelectionOf(pos, s.stack.Len())
		s.queue(EventLayersChanged, selection)
		s.setModified(true)
		return nil
	})
	return selection, err
}

// DuplicateLayer copies the selected layer and places the copy directly in
// front of it. The copy shares the source image. The copy's selection is
// returned; with nothing selected it is a no-op.
func (s *Session) DuplicateLayer(selection int) (int, error) {
	result := selection
	err := s.do(func() error {
		index, ok, err := s.resolve(selection)
		if !ok || err != nil {
			return err
		}
		src, _ := s.stack.Layer(index)
		if _, err := s.cache.Acquire(src.Path, s.minimapScale()); err != nil {
			return fmt.Errorf("failed to duplicate layer %d: %w", src.ID, err)
		}

		id := s.counter
		pos, err := s.stack.Duplicate(index, id)
		if err != nil {
			_ = s.cache.Release(src.Path)
			return err
		}
		s.counter++
		log.Printf("Session: duplicated layer %d as %d", src.ID, id)

		s.updateMinimap(true)
		result = layer.SelectionOf(pos, s.stack.Len())
		s.queue(EventLayersChanged, result)
		s.setModified(true)
		return nil
	})
	return result, err
}

// RemoveLayer deletes the selected layer. When no other layer uses its
// image, the bitmap is evicted and the staged file deleted. The selection
// that should follow is returned.
func (s *Session) RemoveLayer(selection int) (int, error) {
	result := selection
	err := s.do(func() error {
		index, ok, err := s.resolve(selection)
		if !ok || err != nil {
			return err
		}
		removed, unused, err := s.stack.Remove(index)
		if err != nil {
			return err
		}
		if err := s.cache.Release(removed.Path); err != nil {
			log.Printf("Session: %v", err)
		}
		if unused {
			if err := s.cache.Evict(removed.Path); err != nil {
				log.Printf("Session: kept bitmap: %v", err)
			} else if err := os.Remove(removed.Path); err != nil {
				log.Printf("Session: failed to delete %s: %v", removed.Path, err)
			}
		}
		log.Printf("Session: removed layer %d", removed.ID)

		s.updateMinimap(true)
		result = min(selection, s.stack.Len()-1)
		s.queue(EventLayersChanged, result)
		s.setModified(true)
		return nil
	})
	return result, err
}

// MoveForward brings the selected layer one step toward the front and
// returns its new selection.
func (s *Session) MoveForward(selection int) (int, error) {
	return s.reorder(selection, (*layer.Stack).MoveForward)
}

// MoveBackward sends the selected layer one step toward the back and
// returns its new selection.
func (s *Session) MoveBackward(selection int) (int, error) {
	return s.reorder(selection, (*layer.Stack).MoveBackward)
}

func (s *Session) reorder(selection int, move func(*layer.Stack, int) (int, error)) (int, error) {
	result := selection
	err := s.do(func() error {
		index, ok, err := s.resolve(selection)
		if !ok || err != nil {
			return err
		}
		pos, err := move(s.stack, index)
		if err != nil {
			return err
		}
		result = layer.SelectionOf(pos, s.stack.Len())
		if pos != index {
			s.queue(EventLayersChanged, result)
			s.setModified(true)
		}
		return nil
	})
	return result, err
}

// ToggleVisibility shows or hides the selected layer and returns its new
// visibility.
func (s *Session) ToggleVisibility(selection int) (bool, error) {
	var visible bool
	err := s.do(func() error {
		index, ok, err := s.resolve(selection)
		if !ok || err != nil {
			return err
		}
		if visible, err = s.stack.ToggleVisibility(index); err != nil {
			return err
		}
		s.queue(EventLayersChanged, selection)
		s.setModified(true)
		return nil
	})
	return visible, err
}

// MoveLayer drags the selected layer by (dx, dy) canvas pixels.
func (s *Session) MoveLayer(selection, dx, dy int) error {
	return s.do(func() error {
		index, ok, err := s.resolve(selection)
		if !ok || err != nil {
			return err
		}
		if dx == 0 && dy == 0 {
			return nil
		}
		if err := s.stack.Canvas().Move(index, dx, dy); err != nil {
			return err
		}
		s.updateMinimap(false)
		s.queue(EventViewChanged, s.view.Level)
		s.setModified(true)
		return nil
	})
}

// Nudge moves the selected layer one unscaled pixel in the direction
// (dirX, dirY), each component being -1, 0 or 1.
func (s *Session) Nudge(selection, dirX, dirY int) error {
	s.mu.Lock()
	step := s.view.NudgeStep()
	s.mu.Unlock()
	return s.MoveLayer(selection, dirX*step, dirY*step)
}

// Zoom changes the zoom level by delta, keeping the canvas point (ax, ay)
// fixed on screen.
func (s *Session) Zoom(ax, ay, delta int) error {
	return s.do(func() error {
		old, new := s.view.Zoom(delta)
		if old == new {
			return nil
		}
		if err := view.ZoomAbout(ax, ay, old, new, s.stack.Canvas(), s.stack.Unscaled()); err != nil {
			return err
		}
		s.updateMinimap(true)
		s.queue(EventViewChanged, s.view.Level)
		return nil
	})
}

// Pan moves the view by (dx, dy) canvas pixels.
func (s *Session) Pan(dx, dy int) {
	_ = s.do(func() error {
		if s.stack.Len() == 0 || (dx == 0 && dy == 0) {
			return nil
		}
		view.Pan(dx, dy, s.stack.Canvas())
		s.updateMinimap(false)
		s.queue(EventViewChanged, s.view.Level)
		return nil
	})
}

// CenterOn pans so the canvas point under minimap point (mx, my) ends up in
// the middle of the canvas viewport.
func (s *Session) CenterOn(mx, my int) {
	_ = s.do(func() error {
		x, y, ok := s.projector.ToCanvas(mx, my, s.stack.Canvas())
		if !ok {
			return nil
		}
		view.Pan(s.canvasW/2-x, s.canvasH/2-y, s.stack.Canvas())
		s.updateMinimap(false)
		s.queue(EventViewChanged, s.view.Level)
		return nil
	})
}

// SetCanvasViewport records the size of the visible canvas area.
func (s *Session) SetCanvasViewport(w, h int) {
	_ = s.do(func() error {
		if w == s.canvasW && h == s.canvasH {
			return nil
		}
		s.canvasW, s.canvasH = w, h
		s.updateMinimap(false)
		return nil
	})
}

// SetMinimapViewport changes the minimap size and refits the layers to it.
func (s *Session) SetMinimapViewport(w, h int) {
	_ = s.do(func() error {
		if w == s.projector.ViewportW && h == s.projector.ViewportH {
			return nil
		}
		s.projector.ViewportW, s.projector.ViewportH = w, h
		s.updateMinimap(true)
		return nil
	})
}

// ApplyConfig adopts reloaded settings. The zoom limit and minimap size
// take effect immediately; the current zoom is pulled back inside a
// tightened limit.
func (s *Session) ApplyConfig(cfg config.Config) error {
	s.SetMinimapViewport(cfg.Minimap.Width, cfg.Minimap.Height)
	return s.do(func() error {
		s.view.MaxLevel = cfg.Zoom.MaxLevel
		old := view.ScaleFactor(s.view.Level)
		_, new := s.view.Zoom(0)
		if old == new {
			return nil
		}
		if err := view.ZoomAbout(s.canvasW/2, s.canvasH/2, old, new, s.stack.Canvas(), s.stack.Unscaled()); err != nil {
			return err
		}
		s.updateMinimap(true)
		s.queue(EventViewChanged, s.view.Level)
		return nil
	})
}

// LayerAt returns the selection of the front-most visible layer covering
// the canvas point (x, y), or layer.NoSelection.
func (s *Session) LayerAt(x, y int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := geometry.Pt(x, y)
	for i := 0; i < s.stack.Len(); i++ {
		l, _ := s.stack.Layer(i)
		if l.Visible && l.Canvas.Contains(p) {
			return layer.SelectionOf(i, s.stack.Len())
		}
	}
	return layer.NoSelection
}

// SelectionOf returns the current selection of the layer with id, or
// layer.NoSelection when no such layer exists.
func (s *Session) SelectionOf(id layer.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return layer.SelectionOf(s.stack.Index(id), s.stack.Len())
}

// LayerInfo describes the selected layer.
func (s *Session) LayerInfo(selection int) (LayerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, err := layer.ResolveIndex(selection, s.stack.Len())
	if err != nil {
		return LayerInfo{}, err
	}
	return s.info(index), nil
}

// Layers describes every layer in selection order.
func (s *Session) Layers() []LayerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.stack.Len()
	out := make([]LayerInfo, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, s.info(i))
	}
	return out
}

func (s *Session) info(index int) LayerInfo {
	l, _ := s.stack.Layer(index)
	return LayerInfo{
		ID:      l.ID,
		Name:    fmt.Sprintf("layer_%d", l.ID),
		X:       l.Canvas.X,
		Y:       l.Canvas.Y,
		Z:       index,
		W:       l.Canvas.W,
		H:       l.Canvas.H,
		File:    filepath.Base(l.Path),
		Visible: l.Visible,
	}
}

// CanvasItems returns the visible layers back to front with their canvas
// destinations and bitmaps scaled to the current zoom.
func (s *Session) CanvasItems() []RenderItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	scale := s.view.ScaleFactor()
	indices := s.stack.RenderIndices()
	items := make([]RenderItem, 0, len(indices))
	for _, i := range indices {
		l, _ := s.stack.Layer(i)
		bm, err := s.cache.Canvas(l.Path, scale)
		if err != nil {
			log.Printf("Session: layer %d not drawn: %v", l.ID, err)
			continue
		}
		items = append(items, RenderItem{ID: l.ID, Dest: l.Canvas, Bitmap: bm})
	}
	return items
}

// MinimapItems returns the visible layers back to front with their minimap
// destinations and bitmaps.
func (s *Session) MinimapItems() []RenderItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	indices := s.stack.RenderIndices()
	items := make([]RenderItem, 0, len(indices))
	for _, i := range indices {
		l, _ := s.stack.Layer(i)
		bm, ok := s.cache.Minimap(l.Path)
		if !ok {
			continue
		}
		items = append(items, RenderItem{ID: l.ID, Dest: l.Minimap, Bitmap: bm})
	}
	return items
}

// Camera returns the canvas viewport in minimap space.
func (s *Session) Camera() geometry.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projector.Camera
}

// ZoomLevel returns the current zoom level.
func (s *Session) ZoomLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Level
}

// ScaleFactor returns the scale of the current zoom level.
func (s *Session) ScaleFactor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.ScaleFactor()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
