package cache

import (
	"context"
	"time"
)

// Null is a no-op cache. Every Get is a miss and every Set is discarded.
type Null struct{}

// NewNull creates a cache that never stores anything.
func NewNull() Cache { return Null{} }

// Get always misses.
func (Null) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }

// Set discards the value.
func (Null) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error { return nil }

// Delete does nothing.
func (Null) Delete(ctx context.Context, key string) error { return nil }

// Close does nothing.
func (Null) Close() error { return nil }

var _ Cache = Null{}
