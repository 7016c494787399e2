// Package cache provides pluggable byte caches for registry responses.
//
// The null backend is the default: the update checker's contract is one
// best-effort registry call per package, so caching is opt-in. The file
// backend serves repeated local runs; the redis backend serves shared runs
// across machines.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores opaque byte values under string keys with a TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached value and whether it was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Key builds a namespaced cache key from a prefix and a raw identifier.
// The identifier is hashed so arbitrary package names stay filesystem- and
// redis-safe.
func Key(prefix, id string) string {
	return prefix + ":" + Hash([]byte(id))
}

// Hash returns the full hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
