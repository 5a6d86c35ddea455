package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// DirEnumerator yields every supported file in a directory, in sorted
// name order for deterministic batches.
type DirEnumerator struct {
	paths []string
	next  int
}

// NewDirEnumerator lists the supported files directly under dir.
func NewDirEnumerator(dir string) (*DirEnumerator, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if Supported(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	return &DirEnumerator{paths: paths}, nil
}

// Len returns the number of files that will be enumerated.
func (d *DirEnumerator) Len() int {
	return len(d.paths)
}

// Next opens and returns the next file, or io.EOF when done.
func (d *DirEnumerator) Next() (*Document, error) {
	if d.next >= len(d.paths) {
		return nil, io.EOF
	}
	path := d.paths[d.next]
	d.next++

	contentType, _ := ContentTypeFor(path)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return &Document{
		ID:          path,
		ContentType: contentType,
		Reader:      file,
	}, nil
}
