package app

import (
	"errors"
	"fmt"
	goimage "image"
	"log"
	"math"
	"os"
	"path/filepath"

	"cartograph/internal/image"
	"cartograph/internal/layer"
	"cartograph/internal/project"
	"cartograph/internal/view"
	"cartograph/pkg/geometry"
)

// ErrNothingToExport is returned when no visible layer exists.
var ErrNothingToExport = errors.New("no visible layers to export")

// Snapshot captures the persistent state of the map. Image paths are
// recorded as file names inside the staging directory.
func (s *Session) Snapshot() *project.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() *project.Snapshot {
	snap := project.New()
	snap.Counter = int(s.counter)
	for i := 0; i < s.stack.Len(); i++ {
		l, _ := s.stack.Layer(i)
		snap.Order = append(snap.Order, int(l.ID))
		snap.Visibility = append(snap.Visibility, l.Visible)
		snap.Paths[int(l.ID)] = filepath.Base(l.Path)
		snap.Destinations = append(snap.Destinations, l.Canvas)
		snap.Sources = append(snap.Sources, l.Unscaled)
	}
	snap.ZoomLevel = s.view.Level
	snap.MinimapFactor = s.projector.Factor
	snap.Camera = s.projector.Camera
	return snap
}

// Restore replaces the map with snap, whose images live in dir. The images
// are copied into a fresh staging directory and decoded before anything
// changes, so dir is never modified and a failed restore leaves the session
// as it was. The restored map counts as unsaved.
func (s *Session) Restore(snap *project.Snapshot, dir string) error {
	return s.do(func() error {
		if err := snap.Validate(); err != nil {
			return fmt.Errorf("failed to restore map: %w", err)
		}
		staged, err := s.newTempDir()
		if err != nil {
			return err
		}
		for _, name := range snap.Files() {
			if err = copyFile(filepath.Join(dir, name), filepath.Join(staged, name)); err != nil {
				err = fmt.Errorf("failed to stage %s: %w", name, err)
				break
			}
		}
		if err == nil {
			err = s.restore(snap, staged)
		}
		if err != nil {
			os.RemoveAll(staged)
			return err
		}

		s.discardTempDir()
		s.tempDir = staged
		s.setModified(true)
		log.Printf("Session: restored %d layers from %s", s.stack.Len(), dir)
		return nil
	})
}

// restore rebuilds the model from snap, whose images are already staged in
// dir. A zoom level beyond the configured limit is clamped and the canvas
// rescaled to match.
func (s *Session) restore(snap *project.Snapshot, dir string) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("failed to restore map: %w", err)
	}

	factor := snap.MinimapFactor
	if factor <= 0 {
		factor = 1
	}
	zoom := view.New(s.view.MaxLevel)
	zoom.SetLevel(snap.ZoomLevel)
	saved, scale := view.ScaleFactor(snap.ZoomLevel), zoom.ScaleFactor()

	stack := layer.NewStack()
	cache := image.NewCache(s.scaler)
	for i, rawID := range snap.Order {
		path := filepath.Join(dir, snap.Paths[rawID])
		if _, err := cache.Acquire(path, factor*scale); err != nil {
			return fmt.Errorf("failed to restore layer %d: %w", rawID, err)
		}
		stack.AddScaled(layer.ID(rawID), path, snap.Sources[i], snap.Destinations[i], snap.Visibility[i])
	}
	if saved != scale {
		if err := view.ZoomAbout(0, 0, saved, scale, stack.Canvas(), stack.Unscaled()); err != nil {
			return err
		}
		log.Printf("Session: zoom level %d clamped to %d", snap.ZoomLevel, zoom.Level)
	}

	s.stack = stack
	s.cache = cache
	s.counter = layer.ID(snap.Counter)
	s.view.Level = zoom.Level
	s.projector.Factor = factor
	s.projector.Camera = snap.Camera
	s.updateMinimap(true)

	s.queue(EventLayersChanged, min(0, stack.Len()-1))
	s.queue(EventViewChanged, s.view.Level)
	return nil
}

// Open loads the map archive at path, replacing the current map.
func (s *Session) Open(path string) error {
	return s.do(func() error {
		dir, err := s.newTempDir()
		if err != nil {
			return err
		}
		snap, err := project.Open(path, dir)
		if err == nil {
			err = s.restore(snap, dir)
		}
		if err != nil {
			os.RemoveAll(dir)
			return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
		}

		s.discardTempDir()
		s.tempDir = dir
		s.savePath = path
		s.setModified(false)
		log.Printf("Session: opened %s with %d layers", path, s.stack.Len())
		s.queue(EventMapLoaded, path)
		return nil
	})
}

// Save writes the map to path, adding the archive extension if path has
// none, and returns the path written.
func (s *Session) Save(path string) (string, error) {
	path = project.EnsureExt(path)
	err := s.do(func() error {
		if err := project.Save(path, s.snapshot(), s.tempDir); err != nil {
			return err
		}
		s.savePath = path
		s.setModified(false)
		log.Printf("Session: saved %s", path)
		s.queue(EventMapSaved, path)
		return nil
	})
	return path, err
}

// Export writes the visible layers, flattened at full resolution, to a PNG.
func (s *Session) Export(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, err := Flatten(s.snapshot(), func(name string) (goimage.Image, error) {
		if bm, ok := s.cache.Bitmap(filepath.Join(s.tempDir, name)); ok {
			return bm.Image, nil
		}
		return nil, fmt.Errorf("image %s not loaded", name)
	})
	if err != nil {
		return err
	}
	if err := image.WritePNG(path, img); err != nil {
		return err
	}
	log.Printf("Session: exported %dx%d to %s", img.Bounds().Dx(), img.Bounds().Dy(), path)
	return nil
}

// Flatten composites the visible layers of snap at zoom level 0. Canvas
// positions are scaled back by the snapshot's zoom and layers keep their
// unscaled size. open returns the image stored under a snapshot file name.
func Flatten(snap *project.Snapshot, open func(name string) (goimage.Image, error)) (*goimage.RGBA, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	scale := view.ScaleFactor(snap.ZoomLevel)

	var layers []image.CompositeLayer
	for i := snap.Len() - 1; i >= 0; i-- {
		if !snap.Visibility[i] {
			continue
		}
		id := snap.Order[i]
		img, err := open(snap.Paths[id])
		if err != nil {
			return nil, fmt.Errorf("failed to flatten layer %d: %w", id, err)
		}
		d, src := snap.Destinations[i], snap.Sources[i]
		layers = append(layers, image.CompositeLayer{
			Image: img,
			Dest: geometry.NewRect(
				int(math.Round(float64(d.X)/scale)),
				int(math.Round(float64(d.Y)/scale)),
				src.W, src.H,
			),
		})
	}
	if len(layers) == 0 {
		return nil, ErrNothingToExport
	}
	return image.Flatten(layers)
}
