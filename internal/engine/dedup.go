package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ExistenceChecker is the slice of the post store the deduplicator needs.
type ExistenceChecker interface {
	Exists(ctx context.Context, contentHash string) (bool, error)
}

// Deduplicator decides whether a formatted post has been stored before.
// Matching is exact: two posts are the same post iff their canonical
// hashes are equal.
type Deduplicator struct {
	store ExistenceChecker
}

// NewDeduplicator creates a Deduplicator backed by the given store.
func NewDeduplicator(store ExistenceChecker) *Deduplicator {
	return &Deduplicator{store: store}
}

// IsDuplicate returns true if a post with this content hash is already stored.
func (d *Deduplicator) IsDuplicate(ctx context.Context, contentHash string) (bool, error) {
	exists, err := d.store.Exists(ctx, contentHash)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", shortHash(contentHash), err)
	}
	return exists, nil
}

// ContentHash returns the canonical hash of formatted post content: the
// hex-encoded SHA-256 digest of its UTF-8 bytes.
func ContentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
