// Package panels provides UI panels for the application.
package panels

import (
	"fmt"
	"strconv"
	"sync"

	"cartograph/internal/app"
	"cartograph/internal/layer"
	"cartograph/ui/canvas"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// LayersPanel lists the layers back to front, in selection order, edits
// the stack and shows the properties of the selected layer.
type LayersPanel struct {
	session   *app.Session
	canvas    *canvas.LayerCanvas
	window    fyne.Window
	container fyne.CanvasObject

	mu        sync.Mutex
	layers    []app.LayerInfo
	selection int

	list *widget.List

	dupBtn      *widget.Button
	forwardBtn  *widget.Button
	backwardBtn *widget.Button
	hideBtn     *widget.Button
	removeBtn   *widget.Button

	xLabel    *widget.Label
	yLabel    *widget.Label
	zLabel    *widget.Label
	wLabel    *widget.Label
	hLabel    *widget.Label
	fileLabel *widget.Label
	zoomLabel *widget.Label
}

// NewLayersPanel creates a layers panel for session. onAdd is called by the
// Add button and is expected to import an image.
func NewLayersPanel(session *app.Session, cvs *canvas.LayerCanvas, onAdd func()) *LayersPanel {
	lp := &LayersPanel{
		session:   session,
		canvas:    cvs,
		selection: layer.NoSelection,
	}

	lp.list = widget.NewList(
		func() int {
			lp.mu.Lock()
			defer lp.mu.Unlock()
			return len(lp.layers)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("layer_000 (hidden)")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			lp.mu.Lock()
			defer lp.mu.Unlock()
			if id >= len(lp.layers) {
				return
			}
			info := lp.layers[id]
			text := info.Name
			if !info.Visible {
				text += " (hidden)"
			}
			obj.(*widget.Label).SetText(text)
		},
	)
	lp.list.OnSelected = func(id widget.ListItemID) {
		lp.setSelection(int(id))
	}

	addBtn := widget.NewButton("Add", onAdd)
	lp.dupBtn = widget.NewButton("Duplicate", func() {
		lp.apply(lp.session.DuplicateLayer)
	})
	lp.forwardBtn = widget.NewButton("Forward", func() {
		lp.apply(lp.session.MoveForward)
	})
	lp.backwardBtn = widget.NewButton("Backward", func() {
		lp.apply(lp.session.MoveBackward)
	})
	lp.hideBtn = widget.NewButton("Hide", func() {
		if _, err := lp.session.ToggleVisibility(lp.Selection()); err != nil {
			lp.showError(err)
		}
	})
	lp.removeBtn = widget.NewButton("Remove", func() {
		lp.apply(lp.session.RemoveLayer)
	})

	lp.xLabel = widget.NewLabel("")
	lp.yLabel = widget.NewLabel("")
	lp.zLabel = widget.NewLabel("")
	lp.wLabel = widget.NewLabel("")
	lp.hLabel = widget.NewLabel("")
	lp.fileLabel = widget.NewLabel("")
	lp.zoomLabel = widget.NewLabel("")

	props := container.New(layout.NewFormLayout(),
		widget.NewLabel("x"), lp.xLabel,
		widget.NewLabel("y"), lp.yLabel,
		widget.NewLabel("z"), lp.zLabel,
		widget.NewLabel("w"), lp.wLabel,
		widget.NewLabel("h"), lp.hLabel,
		widget.NewLabel("file"), lp.fileLabel,
		widget.NewLabel("zoom"), lp.zoomLabel,
	)

	buttons := container.NewGridWithColumns(3,
		addBtn, lp.dupBtn, lp.removeBtn,
		lp.forwardBtn, lp.backwardBtn, lp.hideBtn,
	)

	lp.container = container.NewBorder(
		buttons,
		widget.NewCard("Properties", "", props),
		nil, nil,
		lp.list,
	)

	cvs.OnSelect(lp.Select)
	session.On(app.EventLayersChanged, func(data interface{}) {
		sel, _ := data.(int)
		lp.reload(sel)
	})
	session.On(app.EventMapLoaded, func(_ interface{}) {
		lp.reload(0)
	})
	session.On(app.EventViewChanged, func(_ interface{}) {
		lp.reload(lp.session.SelectionOf(lp.selectedID()))
	})

	lp.reload(layer.NoSelection)
	return lp
}

// Container returns the panel container.
func (lp *LayersPanel) Container() fyne.CanvasObject {
	return lp.container
}

// SetWindow sets the parent window for dialogs.
func (lp *LayersPanel) SetWindow(w fyne.Window) {
	lp.window = w
}

// Selection returns the selected layer, or layer.NoSelection.
func (lp *LayersPanel) Selection() int {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.selection
}

// Select highlights a layer in the list and on the canvas.
func (lp *LayersPanel) Select(selection int) {
	lp.mu.Lock()
	n := len(lp.layers)
	lp.mu.Unlock()
	if selection < 0 || selection >= n {
		lp.list.UnselectAll()
		lp.setSelection(layer.NoSelection)
		return
	}
	lp.list.Select(selection)
	lp.setSelection(selection)
}

// selectedID returns the id of the selected layer, or -1.
func (lp *LayersPanel) selectedID() layer.ID {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.selection < 0 || lp.selection >= len(lp.layers) {
		return -1
	}
	return lp.layers[lp.selection].ID
}

func (lp *LayersPanel) setSelection(selection int) {
	lp.mu.Lock()
	lp.selection = selection
	lp.mu.Unlock()
	lp.canvas.SetSelection(selection)
	lp.updateProperties()
}

// apply runs a selection-based edit and follows the selection it returns.
func (lp *LayersPanel) apply(op func(selection int) (int, error)) {
	sel, err := op(lp.Selection())
	if err != nil {
		lp.showError(err)
		return
	}
	lp.Select(sel)
}

// reload refetches the layer list from the session and selects selection.
func (lp *LayersPanel) reload(selection int) {
	layers := lp.session.Layers()
	lp.mu.Lock()
	lp.layers = layers
	lp.mu.Unlock()
	lp.list.Refresh()
	lp.Select(selection)
}

func (lp *LayersPanel) updateProperties() {
	lp.mu.Lock()
	sel := lp.selection
	var info app.LayerInfo
	ok := sel >= 0 && sel < len(lp.layers)
	if ok {
		info = lp.layers[sel]
	}
	lp.mu.Unlock()

	lp.zoomLabel.SetText(fmt.Sprintf("%d (x%.2f)", lp.session.ZoomLevel(), lp.session.ScaleFactor()))

	buttons := []*widget.Button{lp.dupBtn, lp.forwardBtn, lp.backwardBtn, lp.hideBtn, lp.removeBtn}
	if !ok {
		for _, l := range []*widget.Label{lp.xLabel, lp.yLabel, lp.zLabel, lp.wLabel, lp.hLabel, lp.fileLabel} {
			l.SetText("-")
		}
		for _, b := range buttons {
			b.Disable()
		}
		return
	}
	for _, b := range buttons {
		b.Enable()
	}

	lp.xLabel.SetText(strconv.Itoa(info.X))
	lp.yLabel.SetText(strconv.Itoa(info.Y))
	lp.zLabel.SetText(strconv.Itoa(info.Z))
	lp.wLabel.SetText(strconv.Itoa(info.W))
	lp.hLabel.SetText(strconv.Itoa(info.H))
	lp.fileLabel.SetText(info.File)
	if info.Visible {
		lp.hideBtn.SetText("Hide")
	} else {
		lp.hideBtn.SetText("Show")
	}
}

func (lp *LayersPanel) showError(err error) {
	if lp.window != nil {
		dialog.ShowError(err, lp.window)
	}
}
