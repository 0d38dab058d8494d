// Package archive bundles a compiled query's generated sources into a
// single tar.gz, for the --archive CLI flag (spec.md §6, "--archive").
// cmd/jpc passes it exactly one file, the generated <base>.cpp.
// Uses klauspost/compress's gzip, a drop-in faster replacement for the
// standard library's compress/gzip that several sibling packages in
// this module's source pool reach for when writing bulk output.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"
)

// File is one entry to place in the archive.
type File struct {
	Name     string // archive-relative path, forward-slash separated
	Contents []byte
	Mode     os.FileMode
}

// Write bundles files into a tar.gz stream on w. Entries are written in
// Name order so the output is byte-for-byte reproducible across runs
// given the same file set.
func Write(w io.Writer, files []File) error {
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	for _, f := range sorted {
		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}
		hdr := &tar.Header{
			Name: filepath.ToSlash(f.Name),
			Mode: int64(mode),
			Size: int64(len(f.Contents)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("archive: writing header for %q: %w", f.Name, err)
		}
		if _, err := tw.Write(f.Contents); err != nil {
			return fmt.Errorf("archive: writing contents for %q: %w", f.Name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("archive: closing tar writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("archive: closing gzip writer: %w", err)
	}
	return nil
}

// WriteFile bundles files into a tar.gz at path, creating parent
// directories as needed.
func WriteFile(path string, files []File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("archive: creating output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: creating %q: %w", path, err)
	}

	if err := Write(f, files); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
