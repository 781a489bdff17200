// Package cache is the package snapshot cache: the last known record per
// package code, persisted so offline scans have something to resolve
// against. Reads always report freshness; serving cached data as live is
// the caller's bug to avoid, so the verdict travels with the value.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/juakali/scanflow/internal/model"
	"github.com/juakali/scanflow/internal/store"
)

const (
	// DefaultTTL is how long a snapshot counts as fresh after a fetch.
	DefaultTTL = 15 * time.Minute

	// DefaultMaxEntries bounds the cache for constrained field devices.
	DefaultMaxEntries = 512
)

// Entry is a cache read result: the snapshot, when it was fetched, and
// whether it has aged past the freshness TTL.
type Entry struct {
	Snapshot  model.Snapshot
	FetchedAt time.Time
	Stale     bool
}

// Cache stores package snapshots keyed by code with TTL staleness and a
// bounded entry count enforced by LRU eviction on write.
type Cache struct {
	store      *store.Store
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the freshness TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithMaxEntries overrides the entry bound.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

// WithNowFunc overrides the time source. Used for testing staleness.
func WithNowFunc(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache over the given store.
func New(st *store.Store, opts ...Option) *Cache {
	c := &Cache{
		store:      st,
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached entry for a code, if any.
// The entry's Stale flag is computed against the TTL at read time.
func (c *Cache) Get(ctx context.Context, code string) (Entry, bool, error) {
	snap, fetchedAt, ok, err := c.store.GetSnapshot(ctx, code, c.now())
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache get %s: %w", code, err)
	}
	if !ok {
		return Entry{}, false, nil
	}
	return Entry{
		Snapshot:  snap,
		FetchedAt: fetchedAt,
		Stale:     c.now().Sub(fetchedAt) > c.ttl,
	}, true, nil
}

// Put stores a freshly fetched snapshot and evicts least-recently-used
// entries beyond the bound. Every successful fetch from the authority must
// land here so the cache converges on server truth.
func (c *Cache) Put(ctx context.Context, snap model.Snapshot) error {
	if err := c.store.PutSnapshot(ctx, snap, c.now()); err != nil {
		return fmt.Errorf("cache put %s: %w", snap.Code, err)
	}
	if _, err := c.store.EvictSnapshotsLRU(ctx, c.maxEntries); err != nil {
		return fmt.Errorf("cache put %s: evict: %w", snap.Code, err)
	}
	return nil
}

// Delete drops the cached entry for a code, if present.
func (c *Cache) Delete(ctx context.Context, code string) error {
	if err := c.store.DeleteSnapshot(ctx, code); err != nil {
		return fmt.Errorf("cache delete %s: %w", code, err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	return c.store.CountSnapshots(ctx)
}
