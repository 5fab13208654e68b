package service

import (
	"context"
	"log/slog"

	"github.com/openshelf/catalog/internal/broadcast"
	"github.com/openshelf/catalog/internal/domain/notification"
	"github.com/openshelf/catalog/internal/port/cache"
)

// Cache keys used by the HTTP read path.
const (
	CacheKeyBookList = "books:list"
	cacheKeyBook     = "books:"
)

// CacheKeyBook returns the cache key for a single book.
func CacheKeyBook(id string) string { return cacheKeyBook + id }

// StartCacheInvalidator subscribes to the local broadcaster and drops the
// read-cache entries affected by each notification, keeping the server-side
// read path consistent with what clients are told. The returned function
// stops the invalidator.
func StartCacheInvalidator(ctx context.Context, b *broadcast.Broadcaster, c cache.Cache) func() {
	sub := b.Subscribe()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.Done():
				return
			case env := <-sub.C():
				invalidate(ctx, c, env)
			}
		}
	}()

	return func() { b.Unsubscribe(sub.ID()) }
}

func invalidate(ctx context.Context, c cache.Cache, env notification.Envelope) {
	switch env.Type {
	case notification.TypeBookCreated, notification.TypeBookUpdated, notification.TypeBookDeleted:
		if err := c.Delete(ctx, CacheKeyBookList); err != nil {
			slog.Debug("cache invalidation failed", "key", CacheKeyBookList, "error", err)
		}
		if err := c.Delete(ctx, CacheKeyBook(env.EntityID)); err != nil {
			slog.Debug("cache invalidation failed", "key", CacheKeyBook(env.EntityID), "error", err)
		}
	case notification.TypePing:
		// Liveness only; nothing to invalidate.
	}
}
