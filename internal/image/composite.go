package image

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"cartograph/pkg/geometry"

	"golang.org/x/image/draw"
)

// Composite stacks layers into a single image.
type Composite struct {
	Width     int
	Height    int
	Layers    []*CompositeLayer
	BackColor color.Color
	Interp    draw.Interpolator
}

// CompositeLayer places an image at a destination rectangle. The image is
// stretched when its size differs from the destination.
type CompositeLayer struct {
	Image image.Image
	Dest  geometry.Rect
}

// NewComposite creates a transparent Composite with the specified dimensions.
func NewComposite(width, height int) *Composite {
	return &Composite{
		Width:     width,
		Height:    height,
		BackColor: color.Transparent,
		Interp:    draw.BiLinear,
	}
}

// AddLayer adds a layer on top of the ones already added.
func (c *Composite) AddLayer(img image.Image, dest geometry.Rect) {
	c.Layers = append(c.Layers, &CompositeLayer{Image: img, Dest: dest})
}

// Render produces the final composited image. Layers are drawn in the
// order they were added, so the last one ends up on top.
func (c *Composite) Render() *image.RGBA {
	result := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	draw.Draw(result, result.Bounds(), &image.Uniform{c.BackColor}, image.Point{}, draw.Src)
	c.RenderInto(result, image.Point{})
	return result
}

// RenderInto draws every layer onto dst shifted by offset.
func (c *Composite) RenderInto(dst draw.Image, offset image.Point) {
	for _, cl := range c.Layers {
		if cl.Image == nil || cl.Dest.Empty() {
			continue
		}
		drawLayer(dst, cl.Image, cl.Dest.Image().Add(offset), c.Interp)
	}
}

func drawLayer(dst draw.Image, src image.Image, r image.Rectangle, interp draw.Interpolator) {
	if !r.Overlaps(dst.Bounds()) {
		return
	}
	sb := src.Bounds()
	if sb.Dx() == r.Dx() && sb.Dy() == r.Dy() {
		draw.Draw(dst, r, src, sb.Min, draw.Over)
		return
	}
	interp.Scale(dst, r, src, sb, draw.Over, nil)
}

// Flatten composites layers, given back to front, into an image just large
// enough to hold all of them.
func Flatten(layers []CompositeLayer) (*image.RGBA, error) {
	dests := make([]geometry.Rect, 0, len(layers))
	for _, l := range layers {
		dests = append(dests, l.Dest)
	}
	bbox, ok := geometry.BoundingBox(dests)
	if !ok || bbox.Empty() {
		return nil, fmt.Errorf("nothing to flatten")
	}

	c := NewComposite(bbox.W, bbox.H)
	for _, l := range layers {
		c.AddLayer(l.Image, l.Dest.Translate(-bbox.X, -bbox.Y))
	}
	return c.Render(), nil
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return f.Close()
}
