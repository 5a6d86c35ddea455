package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/platinummonkey/docsift/internal/document"
)

// reportFilename is the batch report file written next to the results.
const reportFilename = "_report.json"

// DirSink writes each document result as <stem>.json in the output
// directory, and the batch report as _report.json. Names derive from the
// source basename, so sources that share a basename are disambiguated
// rather than overwriting each other.
type DirSink struct {
	dir string

	mu      sync.Mutex
	claimed map[string]string // filename -> source that owns it
}

// NewDirSink creates a DirSink rooted at dir, creating it if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DirSink{dir: dir, claimed: make(map[string]string)}, nil
}

// Write persists one document result.
func (d *DirSink) Write(result *document.DocumentResult) error {
	name := d.claim(result)
	return writeJSON(filepath.Join(d.dir, name), result)
}

// claim reserves the output filename for a result. When another source
// already owns the name, a content-hash suffix (or a counter when no
// hash is available) keeps the results apart.
func (d *DirSink) claim(result *document.DocumentResult) string {
	name := resultFilename(result)
	stem := strings.TrimSuffix(name, ".json")

	d.mu.Lock()
	defer d.mu.Unlock()

	if owner, taken := d.claimed[name]; taken && owner != result.Source {
		if hash := result.ContentHash; hash != "" {
			if len(hash) > 8 {
				hash = hash[:8]
			}
			name = stem + "-" + hash + ".json"
		}
		for i := 2; ; i++ {
			owner, taken := d.claimed[name]
			if !taken || owner == result.Source {
				break
			}
			name = fmt.Sprintf("%s-%d.json", stem, i)
		}
	}
	d.claimed[name] = result.Source
	return name
}

// WriteReport persists the batch report.
func (d *DirSink) WriteReport(report *document.BatchReport) error {
	return writeJSON(filepath.Join(d.dir, reportFilename), report)
}

// resultFilename derives the output name from the source stem, falling
// back to the content hash for unusable names.
func resultFilename(result *document.DocumentResult) string {
	base := filepath.Base(result.Source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = sanitizeFilename(stem)
	if stem == "" || stem == "." {
		stem = result.ContentHash
		if len(stem) > 16 {
			stem = stem[:16]
		}
	}
	return stem + ".json"
}

// sanitizeFilename replaces characters that are invalid in filenames.
func sanitizeFilename(name string) string {
	replacements := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '_',
		'?':  '_',
		'"':  '\'',
		'<':  '_',
		'>':  '_',
		'|':  '-',
	}

	var sb strings.Builder
	for _, ch := range name {
		if replacement, found := replacements[ch]; found {
			sb.WriteRune(replacement)
			continue
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}

// writeJSON writes v atomically: temp file then rename.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit %s: %w", filepath.Base(path), err)
	}
	return nil
}
