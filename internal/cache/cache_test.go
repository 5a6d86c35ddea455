package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/platinummonkey/docsift/internal/document"
)

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("same bytes"))
	b := ContentHash([]byte("same bytes"))
	c := ContentHash([]byte("different bytes"))

	if a != b {
		t.Error("identical bytes should hash identically")
	}
	if a == c {
		t.Error("different bytes should hash differently")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex characters", len(a))
	}

	// Empty input still hashes deterministically
	if ContentHash(nil) != ContentHash([]byte{}) {
		t.Error("nil and empty slices should hash the same")
	}
}

func sampleResult(source string) *document.DocumentResult {
	page := document.Page{Index: 0, Width: 100, Height: 100}
	page.AddToken(document.NewToken("word", document.NewBoundingBox(0, 0, 40, 10), 0.9))
	return &document.DocumentResult{
		Source: source,
		Pages:  []document.Page{page},
		Status: document.StatusSuccess,
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	hash := ContentHash([]byte("doc"))

	if _, found, err := store.Get(hash); err != nil || found {
		t.Fatalf("Get() on empty store = found=%v err=%v, want miss", found, err)
	}

	if err := store.Put(hash, sampleResult("a.pdf")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, found, err := store.Get(hash)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("expected a cache hit")
	}
	if got.Source != "a.pdf" {
		t.Errorf("Source = %q, want a.pdf", got.Source)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	hash := ContentHash([]byte("doc"))
	if err := store.Put(hash, sampleResult("a.pdf")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	first, _, _ := store.Get(hash)
	first.Source = "mutated"

	second, _, _ := store.Get(hash)
	if second.Source != "a.pdf" {
		t.Error("mutating a returned result should not affect the stored entry")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	hash := ContentHash([]byte("doc"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Put(hash, sampleResult("a.pdf"))
			_, _, _ = store.Get(hash)
		}()
	}
	wg.Wait()

	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	hash := ContentHash([]byte("doc"))

	if _, found, err := store.Get(hash); err != nil || found {
		t.Fatalf("Get() on empty store = found=%v err=%v, want miss", found, err)
	}

	if err := store.Put(hash, sampleResult("b.pdf")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, found, err := store.Get(hash)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("expected a cache hit")
	}
	if got.Source != "b.pdf" {
		t.Errorf("Source = %q, want b.pdf", got.Source)
	}
	if got.WordCount != sampleResult("b.pdf").WordCount {
		t.Errorf("WordCount = %d, want %d", got.WordCount, sampleResult("b.pdf").WordCount)
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	hash := ContentHash([]byte("doc"))

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := store.Put(hash, sampleResult("c.pdf")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	_, found, err := reopened.Get(hash)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Error("entries should survive reopening the store")
	}
}

func TestFileStore_CorruptEntryIsAnError(t *testing.T) {
	dir := t.TempDir()
	hash := ContentHash([]byte("doc"))

	if err := os.WriteFile(filepath.Join(dir, hash+".json"), []byte("not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt entry: %v", err)
	}

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if _, _, err := store.Get(hash); err == nil {
		t.Error("expected an error for a corrupt cache entry")
	}
}

func TestFileStore_RequiresDirectory(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("expected an error for an empty directory")
	}
}

func TestFileStore_PutOverwrites(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	hash := ContentHash([]byte("doc"))

	if err := store.Put(hash, sampleResult("old.pdf")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(hash, sampleResult("new.pdf")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, _, _ := store.Get(hash)
	if got.Source != "new.pdf" {
		t.Errorf("Source = %q, want new.pdf after overwrite", got.Source)
	}
}
