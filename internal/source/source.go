// Package source defines the input enumerator contract and a
// directory-backed implementation. The orchestrator only consumes the
// enumerated sequence; it never walks filesystems itself.
package source

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// Document is one enumerated input: an identifier, a byte reader, and the
// payload content type. The consumer is responsible for closing Reader.
type Document struct {
	// ID identifies the input (path or URI)
	ID string

	// ContentType is the payload format (e.g. application/pdf)
	ContentType string

	// Reader yields the raw document bytes
	Reader io.ReadCloser
}

// Enumerator yields a finite sequence of documents. Next returns io.EOF
// once the sequence is exhausted.
type Enumerator interface {
	Next() (*Document, error)
}

// contentTypes maps the supported input extensions to their content types.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".pdf":  "application/pdf",
}

// ContentTypeFor returns the content type for a file path, and whether the
// format is supported at all.
func ContentTypeFor(path string) (string, bool) {
	ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]
	return ct, ok
}

// Supported reports whether the file format is supported.
func Supported(path string) bool {
	_, ok := ContentTypeFor(path)
	return ok
}

// SliceEnumerator yields an in-memory list of documents, mainly for tests
// and programmatic batches.
type SliceEnumerator struct {
	docs []Document
	next int
}

// NewSliceEnumerator creates an enumerator over the given documents.
func NewSliceEnumerator(docs ...Document) *SliceEnumerator {
	return &SliceEnumerator{docs: docs}
}

// FromBytes builds a Document around an in-memory payload.
func FromBytes(id, contentType string, data []byte) Document {
	return Document{
		ID:          id,
		ContentType: contentType,
		Reader:      io.NopCloser(bytes.NewReader(data)),
	}
}

// Next returns the next document or io.EOF.
func (s *SliceEnumerator) Next() (*Document, error) {
	if s.next >= len(s.docs) {
		return nil, io.EOF
	}
	doc := s.docs[s.next]
	s.next++
	return &doc, nil
}
