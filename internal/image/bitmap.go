// Package image provides bitmap loading, scaling, caching and compositing.
package image

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"cartograph/pkg/geometry"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Bitmap is a decoded source image.
type Bitmap struct {
	Path   string      // File the bitmap was decoded from
	Format string      // Decoder name reported by image.Decode
	Image  image.Image // Decoded pixels
}

// Load decodes the image at path.
func Load(path string) (*Bitmap, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filepath.Base(path), err)
	}
	return &Bitmap{Path: path, Format: format, Image: img}, nil
}

// Width returns the bitmap width in pixels.
func (b *Bitmap) Width() int {
	if b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dx()
}

// Height returns the bitmap height in pixels.
func (b *Bitmap) Height() int {
	if b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dy()
}

// Rect returns the bitmap's extent anchored at the origin.
func (b *Bitmap) Rect() geometry.Rect {
	return geometry.NewRect(0, 0, b.Width(), b.Height())
}

// SupportedFormats returns the file extensions Load can decode.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
