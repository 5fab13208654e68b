package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/openshelf/catalog/internal/domain/notification"
)

// EntryState is the lifecycle state of a cache entry.
type EntryState int

const (
	EntryLoading EntryState = iota
	EntryReady
	EntryError
)

// QueryFunc fetches the authoritative value for a cache entry.
type QueryFunc func(ctx context.Context) (any, error)

// TagFunc maps an envelope to the invalidation tags it fires. It is supplied
// by the application; returning nil means no entry is invalidated.
type TagFunc func(env notification.Envelope) []string

// BookTags is the standard tag mapping for book notifications: every book
// change fires the list tag plus an entity-specialized tag.
func BookTags(env notification.Envelope) []string {
	switch env.Type {
	case notification.TypeBookCreated, notification.TypeBookUpdated, notification.TypeBookDeleted:
		return []string{"books", "books:" + env.EntityID}
	case notification.TypePing:
		return nil
	default:
		return nil
	}
}

// entry is one keyed query result. All mutation of data/state goes through
// mu, so a user MutateData and a concurrently completing refresh cannot
// interleave.
type entry struct {
	mu    sync.Mutex
	tags  map[string]struct{}
	query QueryFunc
	data  any
	state EntryState
	err   error
}

// seenLimit bounds the de-duplication set; beyond it the set is reset, which
// at worst causes one redundant (idempotent) refresh per event.
const seenLimit = 4096

// Cache is a keyed client-side cache of query results that refreshes entries
// when a consumed notification matches their tags.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	tags    TagFunc
	dedup   bool
	seen    map[string]struct{}
}

// NewCache creates a cache using the given tag mapping. When dedup is true,
// envelopes whose EventID was already handled are ignored.
func NewCache(tags TagFunc, dedup bool) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		tags:    tags,
		dedup:   dedup,
		seen:    make(map[string]struct{}),
	}
}

// Load creates (or replaces) the entry under key and executes query
// synchronously, transitioning Loading → Ready or Loading → Error.
// The query and tags are retained for later invalidation refreshes.
func (c *Cache) Load(ctx context.Context, key string, tags []string, query QueryFunc) error {
	e := &entry{
		tags:  make(map[string]struct{}, len(tags)),
		query: query,
		state: EntryLoading,
	}
	for _, t := range tags {
		e.tags[t] = struct{}{}
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	return e.refresh(ctx)
}

// Get returns the entry's current data and state.
func (c *Cache) Get(key string) (any, EntryState, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, EntryLoading, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data, e.state, true
}

// MutateData applies transform to the entry's in-memory value immediately,
// with no network round-trip. The caller issues the real mutation separately
// and reverts with a second MutateData if it fails.
func (c *Cache) MutateData(key string, transform func(any) any) bool {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.data = transform(e.data)
	return true
}

// Remove destroys the entry under key, typically when the owning view goes
// away. Idempotent.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// HandleEnvelope is the listener wired to the stream consumer. Entries whose
// tags match the envelope are re-loaded asynchronously via their original
// query; each matching entry refreshes independently.
func (c *Cache) HandleEnvelope(env notification.Envelope) {
	if env.Type == notification.TypePing {
		return
	}
	if c.dedup && c.alreadySeen(env.EventID) {
		return
	}

	fired := c.tags(env)
	if len(fired) == 0 {
		return
	}

	c.mu.RLock()
	var matched []*entry
	for _, e := range c.entries {
		for _, t := range fired {
			if _, ok := e.tags[t]; ok {
				matched = append(matched, e)
				break
			}
		}
	}
	c.mu.RUnlock()

	for _, e := range matched {
		go func(e *entry) {
			if err := e.refresh(context.Background()); err != nil {
				slog.Debug("cache refresh failed", "event", env.EventID, "error", err)
			}
		}(e)
	}
}

func (c *Cache) alreadySeen(eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[eventID]; ok {
		return true
	}
	if len(c.seen) >= seenLimit {
		c.seen = make(map[string]struct{})
	}
	c.seen[eventID] = struct{}{}
	return false
}

// refresh re-executes the entry's query while holding its mutex, so user
// mutations are serialized against invalidation refreshes.
func (e *entry) refresh(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = EntryLoading
	data, err := e.query(ctx)
	if err != nil {
		e.state = EntryError
		e.err = err
		return err
	}
	e.data = data
	e.state = EntryReady
	e.err = nil
	return nil
}
