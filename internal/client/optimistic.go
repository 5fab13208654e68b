package client

import (
	"sync"
	"time"
)

// PendingItem is a locally-created entity not yet confirmed by the
// authoritative stream.
type PendingItem struct {
	LocalID   string
	Display   any
	CreatedAt time.Time
}

// PendingSet tracks optimistic entries per list key so new items can appear
// in list views before the server confirms them, then disappear exactly once
// confirmed. Items older than maxAge are dropped even without confirmation
// so a failed request never leaves a ghost row behind.
type PendingSet struct {
	mu     sync.Mutex
	lists  map[string][]PendingItem
	maxAge time.Duration
	now    func() time.Time // for testing
}

// NewPendingSet creates a PendingSet with the given unconfirmed-entry TTL.
func NewPendingSet(maxAge time.Duration) *PendingSet {
	return &PendingSet{
		lists:  make(map[string][]PendingItem),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Add inserts a transient item into the pending set for listKey. Call it
// immediately before issuing the mutating request.
func (p *PendingSet) Add(listKey, localID string, display any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lists[listKey] = append(p.lists[listKey], PendingItem{
		LocalID:   localID,
		Display:   display,
		CreatedAt: p.now(),
	})
}

// ReconcileID removes the pending item whose local id matches a confirmed
// entity id. Returns true when an item was removed.
func (p *PendingSet) ReconcileID(listKey, entityID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := p.lists[listKey]
	for i, it := range items {
		if it.LocalID == entityID {
			p.lists[listKey] = append(items[:i], items[i+1:]...)
			return true
		}
	}
	return false
}

// ReconcileOldest removes the oldest pending item for listKey. Use it when
// ids are assigned server-side and a refreshed list has superseded the
// optimistic row. Returns true when an item was removed.
func (p *PendingSet) ReconcileOldest(listKey string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	items := p.lists[listKey]
	if len(items) == 0 {
		return false
	}

	oldest := 0
	for i := range items {
		if items[i].CreatedAt.Before(items[oldest].CreatedAt) {
			oldest = i
		}
	}
	p.lists[listKey] = append(items[:oldest], items[oldest+1:]...)
	return true
}

// Pending returns the still-live pending items for listKey, dropping any
// past their TTL.
func (p *PendingSet) Pending(listKey string) []PendingItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-p.maxAge)
	items := p.lists[listKey]
	live := items[:0]
	for _, it := range items {
		if it.CreatedAt.After(cutoff) {
			live = append(live, it)
		}
	}
	p.lists[listKey] = live

	out := make([]PendingItem, len(live))
	copy(out, live)
	return out
}

// Merge returns the render set for a list view: authoritative rows first,
// then the still-pending optimistic rows.
func (p *PendingSet) Merge(listKey string, authoritative []any) []any {
	pending := p.Pending(listKey)
	out := make([]any, 0, len(authoritative)+len(pending))
	out = append(out, authoritative...)
	for _, it := range pending {
		out = append(out, it.Display)
	}
	return out
}
