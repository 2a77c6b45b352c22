package canvas

import (
	"fmt"
	goimage "image"
	"log"
	"sync"

	"cartograph/internal/app"
	"cartograph/internal/image"
	"cartograph/internal/layer"
	"cartograph/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// LayerCanvas paints the visible layers of a session and turns pointer
// input into session edits: left drag moves the selected layer, middle drag
// pans, the wheel zooms about the cursor and a tap selects the layer under
// it.
type LayerCanvas struct {
	widget.BaseWidget

	session *app.Session
	raster  *fynecanvas.Raster

	mu         sync.Mutex
	selection  int
	pixelScale float32

	// Fractional drag left over after whole-pixel moves.
	dragX, dragY float32

	panning bool
	panFrom fyne.Position

	onSelect func(selection int)
	onCursor func(x, y int)
}

// NewLayerCanvas creates a canvas showing session.
func NewLayerCanvas(session *app.Session) *LayerCanvas {
	lc := &LayerCanvas{
		session:    session,
		selection:  layer.NoSelection,
		pixelScale: 1,
	}
	lc.raster = fynecanvas.NewRaster(lc.draw)
	lc.raster.ScaleMode = fynecanvas.ImageScalePixels
	lc.ExtendBaseWidget(lc)
	return lc
}

// Selection returns the selected layer.
func (lc *LayerCanvas) Selection() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.selection
}

// SetSelection changes the highlighted layer without notifying OnSelect.
func (lc *LayerCanvas) SetSelection(selection int) {
	lc.mu.Lock()
	changed := lc.selection != selection
	lc.selection = selection
	lc.mu.Unlock()
	if changed {
		lc.Refresh()
	}
}

// OnSelect sets a callback for layers picked by tapping the canvas.
func (lc *LayerCanvas) OnSelect(callback func(selection int)) {
	lc.onSelect = callback
}

// OnCursor sets a callback receiving the pointer position in canvas pixels.
func (lc *LayerCanvas) OnCursor(callback func(x, y int)) {
	lc.onCursor = callback
}

// toPixels converts a widget position to canvas pixels.
func (lc *LayerCanvas) toPixels(pos fyne.Position) (int, int) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return int(pos.X * lc.pixelScale), int(pos.Y * lc.pixelScale)
}

// Tapped selects the front-most visible layer under the pointer.
func (lc *LayerCanvas) Tapped(ev *fyne.PointEvent) {
	x, y := lc.toPixels(ev.Position)
	sel := lc.session.LayerAt(x, y)
	lc.SetSelection(sel)
	if lc.onSelect != nil {
		lc.onSelect(sel)
	}
}

// Dragged moves the selected layer by whole canvas pixels.
func (lc *LayerCanvas) Dragged(ev *fyne.DragEvent) {
	lc.mu.Lock()
	sel := lc.selection
	lc.dragX += ev.Dragged.DX * lc.pixelScale
	lc.dragY += ev.Dragged.DY * lc.pixelScale
	dx, dy := int(lc.dragX), int(lc.dragY)
	lc.dragX -= float32(dx)
	lc.dragY -= float32(dy)
	lc.mu.Unlock()

	if sel == layer.NoSelection {
		return
	}
	if err := lc.session.MoveLayer(sel, dx, dy); err != nil {
		log.Printf("Canvas: move failed: %v", err)
	}
}

// DragEnd discards any leftover fractional drag.
func (lc *LayerCanvas) DragEnd() {
	lc.mu.Lock()
	lc.dragX, lc.dragY = 0, 0
	lc.mu.Unlock()
}

// Scrolled zooms one level per wheel notch, keeping the point under the
// pointer fixed.
func (lc *LayerCanvas) Scrolled(ev *fyne.ScrollEvent) {
	delta := 0
	if ev.Scrolled.DY > 0 {
		delta = 1
	} else if ev.Scrolled.DY < 0 {
		delta = -1
	}
	if delta == 0 {
		return
	}
	x, y := lc.toPixels(ev.Position)
	if err := lc.session.Zoom(x, y, delta); err != nil {
		log.Printf("Canvas: zoom failed: %v", err)
	}
}

// MouseDown starts a pan on the middle button.
func (lc *LayerCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonTertiary {
		return
	}
	lc.mu.Lock()
	lc.panning = true
	lc.panFrom = ev.Position
	lc.mu.Unlock()
}

// MouseUp ends a pan.
func (lc *LayerCanvas) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonTertiary {
		return
	}
	lc.mu.Lock()
	lc.panning = false
	lc.mu.Unlock()
}

// MouseIn implements desktop.Hoverable.
func (lc *LayerCanvas) MouseIn(ev *desktop.MouseEvent) {
	lc.MouseMoved(ev)
}

// MouseMoved pans while the middle button is held and reports the cursor.
func (lc *LayerCanvas) MouseMoved(ev *desktop.MouseEvent) {
	lc.mu.Lock()
	panning := lc.panning
	var dx, dy int
	if panning {
		dx = int((ev.Position.X - lc.panFrom.X) * lc.pixelScale)
		dy = int((ev.Position.Y - lc.panFrom.Y) * lc.pixelScale)
		lc.panFrom.X += float32(dx) / lc.pixelScale
		lc.panFrom.Y += float32(dy) / lc.pixelScale
	}
	lc.mu.Unlock()

	if panning {
		lc.session.Pan(dx, dy)
	}
	if lc.onCursor != nil {
		lc.onCursor(lc.toPixels(ev.Position))
	}
}

// MouseOut implements desktop.Hoverable.
func (lc *LayerCanvas) MouseOut() {
	lc.mu.Lock()
	lc.panning = false
	lc.mu.Unlock()
}

// draw is the raster drawing function.
func (lc *LayerCanvas) draw(w, h int) goimage.Image {
	if size := lc.Size(); size.Width > 0 {
		lc.mu.Lock()
		lc.pixelScale = float32(w) / size.Width
		lc.mu.Unlock()
	}
	lc.session.SetCanvasViewport(w, h)

	output := goimage.NewRGBA(goimage.Rect(0, 0, w, h))
	fill(output, backgroundColor)

	comp := image.NewComposite(w, h)
	for _, item := range lc.session.CanvasItems() {
		comp.AddLayer(item.Bitmap, item.Dest)
	}
	comp.RenderInto(output, goimage.Point{})

	if info, err := lc.session.LayerInfo(lc.Selection()); err == nil && info.Visible {
		r := geometry.NewRect(info.X, info.Y, info.W, info.H)
		drawOutline(output, r, selectionColor, true)
		drawText(output, info.Name, r.X, r.Y-12, labelColor, 2)
	}

	zoom := fmt.Sprintf("X%.2f", lc.session.ScaleFactor())
	drawText(output, zoom, w-textWidth(zoom, 2)-6, h-16, labelColor, 2)
	return output
}

// Refresh redraws the canvas.
func (lc *LayerCanvas) Refresh() {
	lc.raster.Refresh()
}

// CreateRenderer implements fyne.Widget.
func (lc *LayerCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &rasterRenderer{raster: lc.raster, min: fyne.NewSize(100, 100)}
}

// rasterRenderer lays a single raster over the whole widget.
type rasterRenderer struct {
	raster *fynecanvas.Raster
	min    fyne.Size
}

func (r *rasterRenderer) Layout(size fyne.Size) {
	r.raster.Resize(size)
}

func (r *rasterRenderer) MinSize() fyne.Size {
	return r.min
}

func (r *rasterRenderer) Refresh() {
	r.raster.Refresh()
}

func (r *rasterRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.raster}
}

func (r *rasterRenderer) Destroy() {}
