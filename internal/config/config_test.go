package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load = %+v, want defaults", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	data := []byte("minimap:\n  width: 300\n  height: 200\nzoom:\n  max_level: 4\nresampler: nearest\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Minimap != (SizeSpec{300, 200}) {
		t.Errorf("Minimap = %+v", cfg.Minimap)
	}
	if cfg.Zoom.MaxLevel != 4 || cfg.Resampler != "nearest" {
		t.Errorf("Zoom/Resampler = %d/%q", cfg.Zoom.MaxLevel, cfg.Resampler)
	}
	if cfg.Canvas != Default().Canvas {
		t.Errorf("unset canvas lost its default: %+v", cfg.Canvas)
	}
}

func TestLoadRejectsBadSettings(t *testing.T) {
	tests := map[string]string{
		"syntax":    "minimap: [",
		"minimap":   "minimap:\n  width: 0\n  height: 10\n",
		"zoom":      "zoom:\n  max_level: -1\n",
		"resampler": "resampler: lanczos\n",
	}
	dir := t.TempDir()
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err == nil {
				t.Fatalf("Load accepted %q", body)
			}
			if cfg != Default() {
				t.Errorf("failed Load returned %+v, want defaults", cfg)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	want := Default()
	want.Resampler = "catmullrom"
	want.TempDir = "/tmp/maps"

	if err := Save(path, want); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher error: %v", err)
	}
	defer w.Close()

	changes := make(chan Config, 4)
	w.OnChange(func(cfg Config) { changes <- cfg })
	w.Start()

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	updated := Default()
	updated.Zoom.MaxLevel = 3
	if err := Save(path, updated); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changes:
		if cfg.Zoom.MaxLevel != 3 {
			t.Errorf("reloaded max_level = %d, want 3", cfg.Zoom.MaxLevel)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Error("watcher goroutine did not exit")
	}
}
