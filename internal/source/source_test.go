package source

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		path      string
		want      string
		supported bool
	}{
		{"scan.pdf", "application/pdf", true},
		{"photo.JPG", "image/jpeg", true},
		{"photo.jpeg", "image/jpeg", true},
		{"shot.png", "image/png", true},
		{"anim.gif", "image/gif", true},
		{"old.bmp", "image/bmp", true},
		{"new.webp", "image/webp", true},
		{"fax.tiff", "image/tiff", true},
		{"fax.tif", "image/tiff", true},
		{"dir/nested/doc.PDF", "application/pdf", true},
		{"notes.txt", "", false},
		{"archive.zip", "", false},
		{"noextension", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ContentTypeFor(tt.path)
			if ok != tt.supported {
				t.Errorf("supported = %v, want %v", ok, tt.supported)
			}
			if got != tt.want {
				t.Errorf("content type = %q, want %q", got, tt.want)
			}
			if Supported(tt.path) != tt.supported {
				t.Errorf("Supported() disagrees with ContentTypeFor()")
			}
		})
	}
}

func TestSliceEnumerator(t *testing.T) {
	enum := NewSliceEnumerator(
		FromBytes("a.png", "image/png", []byte("aaa")),
		FromBytes("b.png", "image/png", []byte("bbb")),
	)

	first, err := enum.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if first.ID != "a.png" {
		t.Errorf("first ID = %q, want a.png", first.ID)
	}
	data, err := io.ReadAll(first.Reader)
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}
	if string(data) != "aaa" {
		t.Errorf("content = %q, want aaa", data)
	}
	first.Reader.Close()

	if _, err := enum.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	if _, err := enum.Next(); err != io.EOF {
		t.Errorf("exhausted enumerator should return io.EOF, got %v", err)
	}
	// Repeated calls keep returning io.EOF
	if _, err := enum.Next(); err != io.EOF {
		t.Errorf("Next() after EOF = %v, want io.EOF", err)
	}
}

func TestDirEnumerator(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"b.png":     "png bytes",
		"a.pdf":     "pdf bytes",
		"notes.txt": "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}

	enum, err := NewDirEnumerator(dir)
	if err != nil {
		t.Fatalf("NewDirEnumerator() error = %v", err)
	}

	if enum.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (txt and subdir excluded)", enum.Len())
	}

	// Sorted order: a.pdf before b.png
	first, err := enum.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if filepath.Base(first.ID) != "a.pdf" {
		t.Errorf("first document = %q, want a.pdf", first.ID)
	}
	if first.ContentType != "application/pdf" {
		t.Errorf("content type = %q, want application/pdf", first.ContentType)
	}
	data, err := io.ReadAll(first.Reader)
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}
	first.Reader.Close()
	if string(data) != "pdf bytes" {
		t.Errorf("content = %q", data)
	}

	second, err := enum.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	second.Reader.Close()
	if filepath.Base(second.ID) != "b.png" {
		t.Errorf("second document = %q, want b.png", second.ID)
	}

	if _, err := enum.Next(); err != io.EOF {
		t.Errorf("exhausted enumerator should return io.EOF, got %v", err)
	}
}

func TestDirEnumerator_MissingDirectory(t *testing.T) {
	if _, err := NewDirEnumerator(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestDirEnumerator_EmptyDirectory(t *testing.T) {
	enum, err := NewDirEnumerator(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirEnumerator() error = %v", err)
	}
	if enum.Len() != 0 {
		t.Errorf("Len() = %d, want 0", enum.Len())
	}
	if _, err := enum.Next(); err != io.EOF {
		t.Errorf("Next() = %v, want io.EOF", err)
	}
}
