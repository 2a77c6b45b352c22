// Package project provides map snapshots and the .ctpy archive format.
package project

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"cartograph/pkg/geometry"
)

// Ext is the file extension of map archives.
const Ext = ".ctpy"

// DataFile is the name of the JSON document inside an archive.
const DataFile = "data.json"

// CurrentVersion is the snapshot format written by this package.
const CurrentVersion = 1

// Snapshot is the persistent state of a map. Per-layer slices are in
// storage order (index 0 is the front-most layer) and share one length.
type Snapshot struct {
	Version int       `json:"version"`
	Saved   time.Time `json:"saved"`

	// Counter is the next layer id to hand out.
	Counter int `json:"counter"`

	Order      []int          `json:"order"`
	Visibility []bool         `json:"visibility"`
	Paths      map[int]string `json:"paths"` // layer id -> file name inside the archive

	// Destinations are canvas-space rectangles at ZoomLevel; Sources are the
	// unscaled rectangles at zoom level 0.
	Destinations []geometry.Rect `json:"destinations"`
	Sources      []geometry.Rect `json:"sources"`

	ZoomLevel     int           `json:"zoom_level"`
	MinimapFactor float64       `json:"minimap_factor"`
	Camera        geometry.Rect `json:"camera"`
}

// New creates an empty snapshot.
func New() *Snapshot {
	return &Snapshot{
		Version:       CurrentVersion,
		Paths:         make(map[int]string),
		MinimapFactor: 1,
	}
}

// Len returns the number of layers.
func (s *Snapshot) Len() int {
	return len(s.Order)
}

// Validate checks that the snapshot describes a consistent layer stack.
func (s *Snapshot) Validate() error {
	if s.Version > CurrentVersion {
		return fmt.Errorf("unsupported map version %d", s.Version)
	}
	n := len(s.Order)
	if len(s.Visibility) != n || len(s.Destinations) != n || len(s.Sources) != n {
		return fmt.Errorf("layer data out of step: %d ids, %d visibility, %d destinations, %d sources",
			n, len(s.Visibility), len(s.Destinations), len(s.Sources))
	}
	seen := make(map[int]bool, n)
	for i, id := range s.Order {
		if seen[id] {
			return fmt.Errorf("duplicate layer id %d", id)
		}
		seen[id] = true
		if id >= s.Counter {
			return fmt.Errorf("layer id %d not below counter %d", id, s.Counter)
		}
		name, ok := s.Paths[id]
		if !ok {
			return fmt.Errorf("layer id %d has no image", id)
		}
		if !isPlainName(name) {
			return fmt.Errorf("layer id %d has invalid image name %q", id, name)
		}
		if !s.Sources[i].Valid() || !s.Destinations[i].Valid() {
			return fmt.Errorf("layer id %d has a negative extent", id)
		}
	}
	return nil
}

// Files returns the distinct image file names the snapshot references.
func (s *Snapshot) Files() []string {
	var out []string
	seen := make(map[string]bool)
	for _, id := range s.Order {
		name := s.Paths[id]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// EnsureExt appends Ext to path when it has no extension.
func EnsureExt(path string) string {
	if filepath.Ext(path) == "" {
		return path + Ext
	}
	return path
}

// isPlainName reports whether name is a bare file name with no directory part.
func isPlainName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}
