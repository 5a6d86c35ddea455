// Package cache provides the content-addressed result cache that lets a
// batch run skip recognition for bytes it has already processed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/platinummonkey/docsift/internal/document"
)

// ContentHash returns the hex digest of the raw input bytes. The hash is
// computed from content, never from the path, so identical bytes under
// different names deduplicate.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Entry is one persisted cache record.
type Entry struct {
	// Hash is the content hash key
	Hash string `json:"hash"`

	// CreatedAt is when the entry was written
	CreatedAt time.Time `json:"created_at"`

	// Result is the cached document result
	Result document.DocumentResult `json:"result"`
}

// Store is the cache collaborator contract. Implementations must be safe
// for concurrent use; workers processing identical content may race to
// populate the same entry, and last-writer-wins is acceptable because a
// content hash guarantees equivalent payloads.
type Store interface {
	// Get returns the cached result for hash, or found=false
	Get(hash string) (result *document.DocumentResult, found bool, err error)

	// Put stores the result under hash, replacing any existing entry
	Put(hash string, result *document.DocumentResult) error
}
