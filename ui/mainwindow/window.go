// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"cartograph/internal/app"
	"cartograph/internal/config"
	"cartograph/internal/image"
	"cartograph/internal/project"
	"cartograph/internal/version"
	"cartograph/ui/canvas"
	"cartograph/ui/panels"
	"cartograph/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	defaultWidth  = 1280
	defaultHeight = 800
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app     fyne.App
	session *app.Session
	prefs   *prefs.Prefs

	canvas      *canvas.LayerCanvas
	minimap     *canvas.MinimapView
	layersPanel *panels.LayersPanel
	statusBar   *widget.Label
	cursorLabel *widget.Label
}

// New creates the main window for session.
func New(fyneApp fyne.App, session *app.Session, p *prefs.Prefs, cfg config.Config) *MainWindow {
	fyneApp.Settings().SetTheme(&editorTheme{})
	win := fyneApp.NewWindow(version.Name)

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		session: session,
		prefs:   p,
	}

	mw.setupUI(cfg)
	mw.setupMenus()
	mw.setupKeys()
	mw.setupEventHandlers()
	mw.updateTitle()

	win.Resize(fyne.NewSize(
		float32(p.FloatWithFallback(prefs.KeyWindowWidth, defaultWidth)),
		float32(p.FloatWithFallback(prefs.KeyWindowHeight, defaultHeight)),
	))
	win.SetCloseIntercept(mw.onQuit)
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI(cfg config.Config) {
	mw.canvas = canvas.NewLayerCanvas(mw.session)
	mw.minimap = canvas.NewMinimapView(mw.session, cfg.Minimap.Width, cfg.Minimap.Height)

	mw.layersPanel = panels.NewLayersPanel(mw.session, mw.canvas, mw.onAddLayer)
	mw.layersPanel.SetWindow(mw.Window)

	mw.statusBar = widget.NewLabel("Ready")
	mw.cursorLabel = widget.NewLabel("")
	mw.canvas.OnCursor(func(x, y int) {
		mw.cursorLabel.SetText(fmt.Sprintf("%d, %d", x, y))
	})

	side := container.NewBorder(
		container.NewCenter(mw.minimap), // top
		nil,                             // bottom
		nil,                             // left
		nil,                             // right
		mw.layersPanel.Container(),      // center
	)

	split := container.NewHSplit(side, mw.canvas)
	split.SetOffset(0.3)

	status := container.NewBorder(nil, nil, nil, mw.cursorLabel, mw.statusBar)
	content := container.NewBorder(
		nil,                         // top
		container.NewPadded(status), // bottom
		nil,                         // left
		nil,                         // right
		split,                       // center
	)

	mw.SetContent(content)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	quit := fyne.NewMenuItem("Quit", mw.onQuit)
	quit.IsQuit = true

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Map", mw.onNewMap),
		fyne.NewMenuItem("Open Map...", mw.onOpenMap),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Add Layer...", mw.onAddLayer),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Map", mw.onSaveMap),
		fyne.NewMenuItem("Save Map As...", mw.onSaveMapAs),
		fyne.NewMenuItem("Export PNG...", mw.onExport),
		fyne.NewMenuItemSeparator(),
		quit,
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", func() { mw.zoom(1) }),
		fyne.NewMenuItem("Zoom Out", func() { mw.zoom(-1) }),
		fyne.NewMenuItem("Actual Size", func() { mw.zoom(-mw.session.ZoomLevel()) }),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, helpMenu))
}

// setupKeys binds arrow keys to nudging and =/- to zoom.
func (mw *MainWindow) setupKeys() {
	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		var dx, dy int
		switch ev.Name {
		case fyne.KeyLeft:
			dx = -1
		case fyne.KeyRight:
			dx = 1
		case fyne.KeyUp:
			dy = -1
		case fyne.KeyDown:
			dy = 1
		case fyne.KeyEqual:
			mw.zoom(1)
			return
		case fyne.KeyMinus:
			mw.zoom(-1)
			return
		default:
			return
		}
		if err := mw.session.Nudge(mw.layersPanel.Selection(), dx, dy); err != nil {
			mw.updateStatus(err.Error())
		}
	})
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.session.On(app.EventMapLoaded, func(data interface{}) {
		mw.updateTitle()
		if path, ok := data.(string); ok && path != "" {
			mw.updateStatus("Opened " + path)
			mw.prefs.SetString(prefs.KeyLastMap, path)
		} else {
			mw.updateStatus("New map")
		}
		mw.refreshViews()
	})

	mw.session.On(app.EventMapSaved, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.updateStatus("Saved " + path)
			mw.prefs.SetString(prefs.KeyLastMap, path)
		}
		mw.updateTitle()
	})

	mw.session.On(app.EventModified, func(_ interface{}) {
		mw.updateTitle()
	})

	mw.session.On(app.EventLayersChanged, func(_ interface{}) {
		mw.refreshViews()
	})
	mw.session.On(app.EventViewChanged, func(_ interface{}) {
		mw.canvas.Refresh()
	})
	mw.session.On(app.EventMinimapChanged, func(_ interface{}) {
		mw.minimap.Refresh()
	})
}

func (mw *MainWindow) refreshViews() {
	mw.canvas.Refresh()
	mw.minimap.Refresh()
}

// ApplyConfig adopts reloaded editor settings.
func (mw *MainWindow) ApplyConfig(cfg config.Config) {
	mw.minimap.SetViewportSize(cfg.Minimap.Width, cfg.Minimap.Height)
	if err := mw.session.ApplyConfig(cfg); err != nil {
		log.Printf("MainWindow: failed to apply config: %v", err)
		return
	}
	mw.updateStatus("Settings reloaded")
	mw.refreshViews()
}

// OpenPath opens the map at path, reporting failures in a dialog.
func (mw *MainWindow) OpenPath(path string) {
	if err := mw.session.Open(path); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

// updateTitle shows the map name and an unsaved-changes marker.
func (mw *MainWindow) updateTitle() {
	name := "Untitled"
	if path := mw.session.SavePath(); path != "" {
		name = strings.TrimSuffix(filepath.Base(path), project.Ext)
	}
	title := version.Name + " - " + name
	if mw.session.Modified() {
		title += " *"
	}
	mw.SetTitle(title)
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

// confirmDiscard runs action right away when the map has no unsaved
// changes, otherwise only after the user agrees to lose them.
func (mw *MainWindow) confirmDiscard(action func()) {
	if !mw.session.Modified() {
		action()
		return
	}
	dialog.ShowConfirm("Unsaved Changes",
		"The map has unsaved changes. Discard them?",
		func(discard bool) {
			if discard {
				action()
			}
		}, mw.Window)
}

func (mw *MainWindow) zoom(delta int) {
	size := mw.canvas.Size()
	if err := mw.session.Zoom(int(size.Width/2), int(size.Height/2), delta); err != nil {
		mw.updateStatus(err.Error())
	}
}

// Menu action handlers

func (mw *MainWindow) onNewMap() {
	mw.confirmDiscard(func() {
		if err := mw.session.Reset(); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	})
}

func (mw *MainWindow) onOpenMap() {
	mw.confirmDiscard(func() {
		fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
			if err != nil || reader == nil {
				return
			}
			reader.Close()
			path := reader.URI().Path()
			mw.saveLastDir(path)
			mw.OpenPath(path)
		}, mw.Window)
		fd.SetFilter(storage.NewExtensionFileFilter([]string{project.Ext}))
		if loc := mw.getLastDir(); loc != nil {
			fd.SetLocation(loc)
		}
		fd.Show()
	})
}

func (mw *MainWindow) onAddLayer() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)

		if !image.IsSupportedFormat(path) {
			dialog.ShowError(fmt.Errorf("unsupported image format: %s", filepath.Ext(path)), mw.Window)
			return
		}
		if _, err := mw.session.AddLayer(path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Added " + filepath.Base(path))
	}, mw.Window)

	fd.SetFilter(storage.NewExtensionFileFilter(image.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveMap() {
	path := mw.session.SavePath()
	if path == "" {
		mw.onSaveMapAs()
		return
	}
	if _, err := mw.session.Save(path); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onSaveMapAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		mw.saveLastDir(path)
		if _, err := mw.session.Save(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName("map" + project.Ext)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExport() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ".png" {
			path += ".png"
		}
		mw.saveLastDir(path)
		if err := mw.session.Export(path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Exported " + path)
	}, mw.Window)
	fd.SetFileName("map.png")
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onQuit() {
	mw.confirmDiscard(func() {
		size := mw.Canvas().Size()
		mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
		mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
		if err := mw.prefs.SaveIfChanged(); err != nil {
			log.Printf("MainWindow: failed to save preferences: %v", err)
		}
		mw.app.Quit()
	})
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+version.Name,
		fmt.Sprintf("%s v%s\n\n"+
			"Stack images as layers, arrange them on a zoomable canvas\n"+
			"and save the result as a single map archive.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Name, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
