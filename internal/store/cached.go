package store

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/FocuswithJustin/BibleEcho/core/cache"
	"github.com/FocuswithJustin/BibleEcho/core/verse"
)

// CacheOptions sizes the lookup cache.
type CacheOptions struct {
	Size int
	TTL  time.Duration
	Now  func() time.Time
}

// Cached decorates a verse.Store with an LRU cache of exact lookups.
// Concurrent identical lookups share one backend call. Keyword searches are
// passed through, and failed lookups are never cached.
type Cached struct {
	next   verse.Store
	lru    cache.Cache[verse.Query, []verse.Record]
	flight singleflight.Group
}

// NewCached wraps next.
func NewCached(next verse.Store, opts CacheOptions) *Cached {
	return &Cached{
		next: next,
		lru: cache.NewLRUCache[verse.Query, []verse.Record](cache.Config{
			MaxSize: opts.Size,
			TTL:     opts.TTL,
			Now:     opts.Now,
		}),
	}
}

// LookupExact serves q from the cache or the wrapped store.
func (c *Cached) LookupExact(ctx context.Context, q verse.Query) ([]verse.Record, error) {
	q = normalizeQuery(q)
	if records, ok := c.lru.Get(q); ok {
		return clone(records), nil
	}

	v, err, _ := c.flight.Do(flightKey(q), func() (any, error) {
		records, err := c.next.LookupExact(ctx, q)
		if err != nil {
			return nil, err
		}
		c.lru.Put(q, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]verse.Record)), nil
}

// SearchKeyword passes through to the wrapped store.
func (c *Cached) SearchKeyword(ctx context.Context, phrase string, limit int) ([]verse.Record, error) {
	return c.next.SearchKeyword(ctx, phrase, limit)
}

// Ping forwards readiness checks.
func (c *Cached) Ping(ctx context.Context) error {
	if p, ok := c.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Stats reports cache statistics.
func (c *Cached) Stats() cache.Stats {
	return c.lru.Stats()
}

// normalizeQuery makes equivalent queries share a cache key.
func normalizeQuery(q verse.Query) verse.Query {
	q.VerseStart, q.VerseEnd = q.Bounds()
	return q
}

func flightKey(q verse.Query) string {
	return fmt.Sprintf("%d.%d.%d-%d", q.Book, q.Chapter, q.VerseStart, q.VerseEnd)
}

func clone(records []verse.Record) []verse.Record {
	out := make([]verse.Record, len(records))
	copy(out, records)
	return out
}
