package project

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"cartograph/pkg/geometry"
)

func testSnapshot() *Snapshot {
	s := New()
	s.Counter = 3
	s.Order = []int{2, 0}
	s.Visibility = []bool{true, false}
	s.Paths = map[int]string{0: "0.png", 2: "0.png"}
	s.Destinations = []geometry.Rect{geometry.NewRect(10, 20, 200, 100), geometry.NewRect(-5, 0, 60, 40)}
	s.Sources = []geometry.Rect{geometry.NewRect(0, 0, 100, 50), geometry.NewRect(0, 0, 30, 20)}
	s.ZoomLevel = 1
	s.MinimapFactor = 2
	s.Camera = geometry.NewRect(1, 2, 3, 4)
	return s
}

func TestValidate(t *testing.T) {
	if err := testSnapshot().Validate(); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}
	if err := New().Validate(); err != nil {
		t.Errorf("empty snapshot rejected: %v", err)
	}

	tests := map[string]func(s *Snapshot){
		"short visibility": func(s *Snapshot) { s.Visibility = s.Visibility[:1] },
		"duplicate id":     func(s *Snapshot) { s.Order = []int{0, 0} },
		"id past counter":  func(s *Snapshot) { s.Counter = 2 },
		"missing path":     func(s *Snapshot) { delete(s.Paths, 2) },
		"path traversal":   func(s *Snapshot) { s.Paths[2] = "../etc/passwd" },
		"negative extent":  func(s *Snapshot) { s.Sources[0].W = -1 },
		"future version":   func(s *Snapshot) { s.Version = CurrentVersion + 1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			s := testSnapshot()
			mutate(s)
			if err := s.Validate(); err == nil {
				t.Error("Validate accepted a broken snapshot")
			}
		})
	}
}

func TestFiles(t *testing.T) {
	s := testSnapshot()
	s.Paths[0] = "1.png"
	if got, want := s.Files(), []string{"0.png", "1.png"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Files() = %v, want %v", got, want)
	}
}

func TestEnsureExt(t *testing.T) {
	tests := map[string]string{
		"map":          "map.ctpy",
		"map.ctpy":     "map.ctpy",
		"dir/atlas":    "dir/atlas" + Ext,
		"backup.other": "backup.other",
	}
	for in, want := range tests {
		if got := EnsureExt(in); got != want {
			t.Errorf("EnsureExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSaveOpenRoundTrip(t *testing.T) {
	work := t.TempDir()
	image := []byte("\x89PNG fake image bytes")
	if err := os.WriteFile(filepath.Join(work, "0.png"), image, 0o644); err != nil {
		t.Fatal(err)
	}
	// Files left behind by removed layers are not archived.
	if err := os.WriteFile(filepath.Join(work, "stale.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "map"+Ext)
	snap := testSnapshot()
	if err := Save(path, snap, work); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	out := t.TempDir()
	got, err := Open(path, out)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	if got.Counter != snap.Counter || got.ZoomLevel != snap.ZoomLevel ||
		got.MinimapFactor != snap.MinimapFactor || got.Camera != snap.Camera {
		t.Errorf("scalars differ: got %+v", got)
	}
	if !reflect.DeepEqual(got.Order, snap.Order) ||
		!reflect.DeepEqual(got.Visibility, snap.Visibility) ||
		!reflect.DeepEqual(got.Paths, snap.Paths) ||
		!reflect.DeepEqual(got.Destinations, snap.Destinations) ||
		!reflect.DeepEqual(got.Sources, snap.Sources) {
		t.Errorf("layers differ: got %+v, want %+v", got, snap)
	}
	if got.Saved.IsZero() {
		t.Error("Saved timestamp not recorded")
	}

	data, err := os.ReadFile(filepath.Join(out, "0.png"))
	if err != nil {
		t.Fatalf("image not extracted: %v", err)
	}
	if string(data) != string(image) {
		t.Errorf("extracted image = %q", data)
	}
	if _, err := os.Stat(filepath.Join(out, "stale.png")); !os.IsNotExist(err) {
		t.Errorf("unreferenced file was archived: %v", err)
	}

	info, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot error: %v", err)
	}
	if info.Len() != 2 {
		t.Errorf("ReadSnapshot Len = %d, want 2", info.Len())
	}
}

func TestSaveMissingImageKeepsOldFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map"+Ext)
	if err := os.WriteFile(path, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, testSnapshot(), t.TempDir()); err == nil {
		t.Fatal("Save succeeded without the layer image")
	}
	data, _ := os.ReadFile(path)
	if string(data) != "previous" {
		t.Errorf("failed Save replaced the existing file")
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("failed Save left %d files behind", len(entries))
	}
}

func TestOpenRejectsBadArchives(t *testing.T) {
	dir := t.TempDir()

	notGzip := filepath.Join(dir, "plain"+Ext)
	if err := os.WriteFile(notGzip, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(notGzip, t.TempDir()); err == nil {
		t.Error("Open accepted a non-gzip file")
	}

	noData := filepath.Join(dir, "nodata"+Ext)
	writeTar(t, noData, map[string]string{"0.png": "img"})
	if _, err := Open(noData, t.TempDir()); err == nil || !strings.Contains(err.Error(), DataFile) {
		t.Errorf("Open without %s error = %v", DataFile, err)
	}

	if _, err := Open(filepath.Join(dir, "missing"+Ext), t.TempDir()); err == nil {
		t.Error("Open of missing file succeeded")
	}
}

func TestOpenRejectsOversizedMember(t *testing.T) {
	old := maxEntrySize
	maxEntrySize = 8
	t.Cleanup(func() { maxEntrySize = old })

	dir := t.TempDir()
	path := filepath.Join(dir, "big"+Ext)
	writeTar(t, path, map[string]string{
		DataFile: `{"version":1,"counter":0,"paths":{}}`,
		"0.png":  "more than eight bytes",
	})

	out := t.TempDir()
	if _, err := Open(path, out); err == nil || !strings.Contains(err.Error(), "limit 8") {
		t.Errorf("Open of oversized member error = %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Error("ReadSnapshot accepted an oversized member")
	}
	if _, err := os.Stat(filepath.Join(out, "0.png")); !os.IsNotExist(err) {
		t.Errorf("oversized member was extracted: %v", err)
	}
}

func TestOpenSkipsUnsafeNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evil"+Ext)
	writeTar(t, path, map[string]string{
		DataFile:        `{"version":1,"counter":0,"paths":{}}`,
		"../escape.png": "x",
	})

	out := filepath.Join(dir, "out")
	if err := os.Mkdir(out, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, out); err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.png")); !os.IsNotExist(err) {
		t.Error("entry escaped the extraction directory")
	}
	if _, err := os.Stat(filepath.Join(out, "escape.png")); !os.IsNotExist(err) {
		t.Error("entry with a directory part was extracted")
	}
}

func writeTar(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
}
