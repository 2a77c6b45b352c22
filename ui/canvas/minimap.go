package canvas

import (
	goimage "image"
	"sync"

	"cartograph/internal/app"
	"cartograph/internal/image"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// MinimapView paints the whole map scaled into a fixed viewport, with the
// canvas viewport outlined. Tapping or dragging recenters the canvas.
type MinimapView struct {
	widget.BaseWidget

	session *app.Session
	raster  *fynecanvas.Raster
	size    fyne.Size

	mu         sync.Mutex
	pixelScale float32
}

// NewMinimapView creates a minimap of w x h pixels for session.
func NewMinimapView(session *app.Session, w, h int) *MinimapView {
	mv := &MinimapView{
		session:    session,
		size:       fyne.NewSize(float32(w), float32(h)),
		pixelScale: 1,
	}
	mv.raster = fynecanvas.NewRaster(mv.draw)
	mv.raster.ScaleMode = fynecanvas.ImageScalePixels
	mv.ExtendBaseWidget(mv)
	return mv
}

// SetViewportSize changes the minimap size.
func (mv *MinimapView) SetViewportSize(w, h int) {
	mv.size = fyne.NewSize(float32(w), float32(h))
	mv.session.SetMinimapViewport(w, h)
	mv.BaseWidget.Refresh()
}

func (mv *MinimapView) center(pos fyne.Position) {
	mv.mu.Lock()
	x, y := int(pos.X*mv.pixelScale), int(pos.Y*mv.pixelScale)
	mv.mu.Unlock()
	mv.session.CenterOn(x, y)
}

// Tapped centers the canvas on the tapped point.
func (mv *MinimapView) Tapped(ev *fyne.PointEvent) {
	mv.center(ev.Position)
}

// Dragged keeps the canvas centered under the pointer.
func (mv *MinimapView) Dragged(ev *fyne.DragEvent) {
	mv.center(ev.Position)
}

// DragEnd implements fyne.Draggable.
func (mv *MinimapView) DragEnd() {}

func (mv *MinimapView) draw(w, h int) goimage.Image {
	if size := mv.Size(); size.Width > 0 {
		mv.mu.Lock()
		mv.pixelScale = float32(w) / size.Width
		mv.mu.Unlock()
	}

	output := goimage.NewRGBA(goimage.Rect(0, 0, w, h))
	fill(output, backgroundColor)

	comp := image.NewComposite(w, h)
	for _, item := range mv.session.MinimapItems() {
		comp.AddLayer(item.Bitmap, item.Dest)
	}
	comp.RenderInto(output, goimage.Point{})

	drawOutline(output, mv.session.Camera(), cameraColor, false)
	return output
}

// Refresh redraws the minimap.
func (mv *MinimapView) Refresh() {
	mv.raster.Refresh()
}

// CreateRenderer implements fyne.Widget.
func (mv *MinimapView) CreateRenderer() fyne.WidgetRenderer {
	return &minimapRenderer{view: mv}
}

type minimapRenderer struct {
	view *MinimapView
}

func (r *minimapRenderer) Layout(size fyne.Size) {
	r.view.raster.Resize(size)
}

func (r *minimapRenderer) MinSize() fyne.Size {
	return r.view.size
}

func (r *minimapRenderer) Refresh() {
	r.view.raster.Refresh()
}

func (r *minimapRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.view.raster}
}

func (r *minimapRenderer) Destroy() {}
