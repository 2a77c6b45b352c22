package image

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrResourceInUse is returned when evicting a bitmap that layers still reference.
	ErrResourceInUse = errors.New("image: bitmap still referenced")

	// ErrNotCached is returned for a path the cache does not hold.
	ErrNotCached = errors.New("image: bitmap not cached")
)

// Loader decodes the bitmap at path.
type Loader func(path string) (*Bitmap, error)

// Cache holds one decoded bitmap per path together with its canvas-scaled
// and minimap-scaled variants. It is not safe for concurrent use.
type Cache struct {
	load    Loader
	scaler  Scaler
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	bitmap *Bitmap
	refs   int

	canvas       image.Image
	canvasFactor float64

	minimap       image.Image
	minimapFactor float64
}

// NewCache creates a cache that decodes with Load and resamples with scaler.
func NewCache(scaler Scaler) *Cache {
	return NewCacheWithLoader(scaler, Load)
}

// NewCacheWithLoader creates a cache with a custom decoder.
func NewCacheWithLoader(scaler Scaler, load Loader) *Cache {
	if scaler == nil {
		scaler, _ = ScalerByName("")
	}
	return &Cache{
		load:    load,
		scaler:  scaler,
		entries: make(map[string]*cacheEntry),
	}
}

// Acquire returns the bitmap for path, decoding it on first use, and adds a
// reference. A newly decoded bitmap gets its minimap variant scaled to
// minimapFactor straight away.
func (c *Cache) Acquire(path string, minimapFactor float64) (*Bitmap, error) {
	if e, ok := c.entries[path]; ok {
		e.refs++
		return e.bitmap, nil
	}

	bm, err := c.load(path)
	if err != nil {
		return nil, err
	}
	mini, err := ScaleBy(c.scaler, bm.Image, minimapFactor)
	if err != nil {
		return nil, fmt.Errorf("failed to scale minimap bitmap: %w", err)
	}
	c.entries[path] = &cacheEntry{
		bitmap:        bm,
		refs:          1,
		canvas:        bm.Image,
		canvasFactor:  1,
		minimap:       mini,
		minimapFactor: minimapFactor,
	}
	return bm, nil
}

// Release drops one reference to path. The bitmap stays cached until Evict.
func (c *Cache) Release(path string) error {
	e, ok := c.entries[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotCached, path)
	}
	if e.refs > 0 {
		e.refs--
	}
	return nil
}

// Evict removes path from the cache. It fails with ErrResourceInUse while
// any reference remains.
func (c *Cache) Evict(path string) error {
	e, ok := c.entries[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotCached, path)
	}
	if e.refs > 0 {
		return fmt.Errorf("%w: %s has %d references", ErrResourceInUse, path, e.refs)
	}
	delete(c.entries, path)
	return nil
}

// Bitmap returns the full-resolution bitmap for path.
func (c *Cache) Bitmap(path string) (*Bitmap, bool) {
	e, ok := c.entries[path]
	if !ok {
		return nil, false
	}
	return e.bitmap, true
}

// Canvas returns path's bitmap scaled by factor, resampling only when the
// factor differs from the last request.
func (c *Cache) Canvas(path string, factor float64) (image.Image, error) {
	e, ok := c.entries[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotCached, path)
	}
	if e.canvasFactor != factor {
		img, err := ScaleBy(c.scaler, e.bitmap.Image, factor)
		if err != nil {
			return nil, fmt.Errorf("failed to scale canvas bitmap: %w", err)
		}
		e.canvas, e.canvasFactor = img, factor
	}
	return e.canvas, nil
}

// Minimap returns path's current minimap variant.
func (c *Cache) Minimap(path string) (image.Image, bool) {
	e, ok := c.entries[path]
	if !ok {
		return nil, false
	}
	return e.minimap, true
}

// RescaleMinimaps regenerates every minimap variant at factor.
func (c *Cache) RescaleMinimaps(factor float64) error {
	for path, e := range c.entries {
		if e.minimapFactor == factor {
			continue
		}
		img, err := ScaleBy(c.scaler, e.bitmap.Image, factor)
		if err != nil {
			return fmt.Errorf("failed to rescale minimap for %s: %w", path, err)
		}
		e.minimap, e.minimapFactor = img, factor
	}
	return nil
}

// Refs returns the reference count of path.
func (c *Cache) Refs(path string) int {
	if e, ok := c.entries[path]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of cached bitmaps.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Reset empties the cache.
func (c *Cache) Reset() {
	c.entries = make(map[string]*cacheEntry)
}
