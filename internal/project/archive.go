package project

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// maxEntrySize bounds a single archive member. Larger members fail the
// whole read.
var maxEntrySize int64 = 1 << 30

// Save writes snap and the image files it references from dir into a
// gzip-compressed tar archive at path. The archive is written next to path
// and renamed into place so a failed save leaves any previous file intact.
func Save(path string, snap *Snapshot, dir string) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("failed to save map: %w", err)
	}
	snap.Version = CurrentVersion
	snap.Saved = time.Now()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode map: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".ctpy-*")
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeArchive(tmp, data, snap.Files(), dir); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

func writeArchive(w io.Writer, data []byte, files []string, dir string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	hdr := &tar.Header{Name: DataFile, Mode: 0o644, Size: int64(len(data)), ModTime: time.Now()}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write %s: %w", DataFile, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", DataFile, err)
	}

	for _, name := range files {
		if err := addFile(tw, filepath.Join(dir, name), name); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

func addFile(tw *tar.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open layer image: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat layer image: %w", err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	return nil
}

// Open extracts the archive at path into dir and returns its snapshot.
// Only plain file names are extracted; anything else is skipped.
func Open(path, dir string) (*Snapshot, error) {
	return readArchive(path, func(name string, r io.Reader) error {
		out, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", name, err)
		}
		if _, err := io.Copy(out, r); err != nil {
			out.Close()
			return fmt.Errorf("failed to extract %s: %w", name, err)
		}
		return out.Close()
	})
}

// ReadSnapshot returns the snapshot stored in the archive at path without
// extracting any images.
func ReadSnapshot(path string) (*Snapshot, error) {
	return readArchive(path, nil)
}

// readArchive decodes the snapshot in path and hands every other member to
// extract when it is non-nil.
func readArchive(path string, extract func(name string, r io.Reader) error) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open map: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read map %s: %w", filepath.Base(path), err)
	}
	defer gz.Close()

	var snap *Snapshot
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read map %s: %w", filepath.Base(path), err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := filepath.Base(hdr.Name)
		if hdr.Size > maxEntrySize {
			return nil, fmt.Errorf("map %s member %s is %d bytes, limit %d",
				filepath.Base(path), name, hdr.Size, maxEntrySize)
		}
		switch {
		case name == DataFile:
			snap = New()
			if err := json.NewDecoder(tr).Decode(snap); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", DataFile, err)
			}
		case extract != nil && isPlainName(name) && filepath.Clean(hdr.Name) == name:
			if err := extract(name, tr); err != nil {
				return nil, err
			}
		}
	}

	if snap == nil {
		return nil, fmt.Errorf("map %s has no %s", filepath.Base(path), DataFile)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid map %s: %w", filepath.Base(path), err)
	}
	return snap, nil
}
