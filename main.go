// Package main provides the entry point for the Cartograph map editor.
package main

import (
	"log"
	"os"

	"cartograph/internal/app"
	"cartograph/internal/config"
	"cartograph/internal/image"
	"cartograph/internal/image/cvscale"
	"cartograph/internal/version"
	"cartograph/ui/mainwindow"
	"cartograph/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s", version.String())

	cfgPath, err := config.Path()
	if err != nil {
		log.Printf("Config: %v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Config: using defaults: %v", err)
	}

	session, err := app.NewSession(cfg, newScaler(cfg.Resampler))
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	defer session.Close()

	fyneApp := fyneapp.NewWithID("io.cartograph.editor")
	win := mainwindow.New(fyneApp, session, prefs.Load(), cfg)

	if len(os.Args) > 1 {
		win.OpenPath(os.Args[1])
	}

	if cfgPath != "" {
		if watcher := watchConfig(cfgPath, win); watcher != nil {
			defer watcher.Close()
		}
	}

	win.ShowAndRun()
}

// newScaler returns the bitmap resampler named in the config.
func newScaler(name string) image.Scaler {
	if name == cvscale.Name {
		return cvscale.New()
	}
	scaler, err := image.ScalerByName(name)
	if err != nil {
		log.Printf("Config: %v, using bilinear", err)
		scaler, _ = image.ScalerByName(image.ResampleBilinear)
	}
	return scaler
}

// watchConfig applies edits to the config file while the editor runs.
func watchConfig(path string, win *mainwindow.MainWindow) *config.Watcher {
	watcher, err := config.NewWatcher(path, config.DefaultDebounce)
	if err != nil {
		log.Printf("Config: hot reload disabled: %v", err)
		return nil
	}
	watcher.OnChange(win.ApplyConfig)
	watcher.Start()
	log.Printf("Config: watching %s", path)
	return watcher
}
