// Package cache defines the server-side byte cache port (interface).
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for the in-process read-through cache used by
// the HTTP layer. Implementations are free to evict at any time.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
