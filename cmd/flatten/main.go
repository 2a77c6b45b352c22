// Command flatten renders a saved map archive to a single PNG, or prints a
// summary of its layers.
package main

import (
	"flag"
	"fmt"
	goimage "image"
	"io"
	"os"
	"path/filepath"

	"cartograph/internal/app"
	"cartograph/internal/image"
	"cartograph/internal/project"
	"cartograph/internal/version"
)

func main() {
	output := flag.String("o", "", "Write the flattened map to this PNG file")
	info := flag.Bool("info", false, "Print the map's layers instead of flattening")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if flag.NArg() != 1 || (*output == "" && !*info) {
		fmt.Println("Usage: flatten [-info] [-o out.png] <map" + project.Ext + ">")
		os.Exit(1)
	}

	path := flag.Arg(0)
	var err error
	if *info {
		err = printInfo(os.Stdout, path)
	}
	if err == nil && *output != "" {
		err = flatten(path, *output)
		if err == nil {
			fmt.Printf("Wrote %s\n", *output)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "flatten: %v\n", err)
		os.Exit(1)
	}
}

// printInfo writes a table of the archive's layers, front-most first.
func printInfo(w io.Writer, path string) error {
	snap, err := project.ReadSnapshot(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %d layers, zoom level %d, saved %s\n",
		filepath.Base(path), snap.Len(), snap.ZoomLevel, snap.Saved.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "%-6s %-8s %7s %7s %7s %7s %s\n", "Z", "Layer", "X", "Y", "W", "H", "File")
	for i, id := range snap.Order {
		d := snap.Destinations[i]
		name := fmt.Sprintf("layer_%d", id)
		if !snap.Visibility[i] {
			name += "*"
		}
		fmt.Fprintf(w, "%-6d %-8s %7d %7d %7d %7d %s\n", i, name, d.X, d.Y, d.W, d.H, snap.Paths[id])
	}
	return nil
}

// flatten extracts the archive to a scratch directory and writes its
// visible layers, composited at full resolution, to output.
func flatten(path, output string) error {
	dir, err := os.MkdirTemp("", "cartograph-flatten-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	snap, err := project.Open(path, dir)
	if err != nil {
		return err
	}
	img, err := app.Flatten(snap, func(name string) (goimage.Image, error) {
		bm, err := image.Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		return bm.Image, nil
	})
	if err != nil {
		return err
	}
	return image.WritePNG(output, img)
}
