package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/platinummonkey/docsift/internal/document"
)

// FileStore persists one JSON file per content hash under a directory.
// Entries are written atomically (temp file plus rename), so concurrent
// writers for the same hash settle to one complete entry.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Get reads the cached result for hash. A missing file means absent, not
// an error.
func (f *FileStore) Get(hash string) (*document.DocumentResult, bool, error) {
	data, err := os.ReadFile(f.entryPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to parse cache entry: %w", err)
	}
	return &entry.Result, true, nil
}

// Put writes the result under hash atomically.
func (f *FileStore) Put(hash string, result *document.DocumentResult) error {
	entry := Entry{
		Hash:      hash,
		CreatedAt: time.Now(),
		Result:    *result,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	path := f.entryPath(hash)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit cache entry: %w", err)
	}
	return nil
}

func (f *FileStore) entryPath(hash string) string {
	return filepath.Join(f.dir, hash+".json")
}
