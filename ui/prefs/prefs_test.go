package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	p := LoadFrom(filepath.Join(t.TempDir(), "none.json"))
	if got := p.String(KeyLastDir); got != "" {
		t.Errorf("String(%q) = %q, want empty", KeyLastDir, got)
	}
	if got := p.FloatWithFallback(KeyWindowWidth, 1280); got != 1280 {
		t.Errorf("FloatWithFallback = %v, want 1280", got)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", prefsFile)
	p := LoadFrom(path)
	p.SetString(KeyLastMap, "/maps/world.ctpy")
	p.SetFloat(KeyWindowWidth, 1024)
	if err := p.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	q := LoadFrom(path)
	if got := q.String(KeyLastMap); got != "/maps/world.ctpy" {
		t.Errorf("String(%q) = %q", KeyLastMap, got)
	}
	if got := q.FloatWithFallback(KeyWindowWidth, 0); got != 1024 {
		t.Errorf("FloatWithFallback(%q) = %v, want 1024", KeyWindowWidth, got)
	}
}

func TestSaveIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	p := LoadFrom(path)
	if err := p.SaveIfChanged(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("unchanged prefs were written: %v", err)
	}

	p.SetString(KeyLastDir, "/tmp")
	if err := p.SaveIfChanged(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("changed prefs not written: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	p.SetString(KeyLastDir, "/tmp")
	if err := p.SaveIfChanged(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("prefs rewritten although nothing changed")
	}
}

func TestCorruptFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), prefsFile)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := LoadFrom(path)
	if got := p.FloatWithFallback(KeyWindowHeight, 720); got != 720 {
		t.Errorf("FloatWithFallback = %v, want 720", got)
	}
}
