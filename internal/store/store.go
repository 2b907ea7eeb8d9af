// Package store builds the configured verse store and wraps it with a
// lookup cache.
package store

import (
	"context"
	"io"

	"github.com/FocuswithJustin/BibleEcho/core/cache"
	"github.com/FocuswithJustin/BibleEcho/core/errors"
	"github.com/FocuswithJustin/BibleEcho/core/verse"
	"github.com/FocuswithJustin/BibleEcho/internal/config"
	"github.com/FocuswithJustin/BibleEcho/internal/logging"
	"github.com/FocuswithJustin/BibleEcho/internal/store/memstore"
	"github.com/FocuswithJustin/BibleEcho/internal/store/sqlstore"
)

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handle is an opened verse store.
type Handle struct {
	verse.Store
	Backend string
	closer  io.Closer
}

// Ping checks the underlying store when it supports readiness checks.
func (h *Handle) Ping(ctx context.Context) error {
	if p, ok := h.Store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// CacheStats reports lookup cache statistics when caching is enabled.
func (h *Handle) CacheStats() (cache.Stats, bool) {
	if c, ok := h.Store.(*Cached); ok {
		return c.Stats(), true
	}
	return cache.Stats{}, false
}

// Close releases the underlying store.
func (h *Handle) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

// Open builds the store described by cfg. When caching is enabled the
// returned store is wrapped in Cached.
func Open(cfg config.StoreConfig) (*Handle, error) {
	var (
		base   verse.Store
		closer io.Closer
	)

	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := sqlstore.Open(cfg.Path, sqlstore.WithTranslation(cfg.Translation))
		if err != nil {
			return nil, err
		}
		base, closer = s, s

	case config.BackendMemory:
		s := memstore.New(memstore.WithTranslation(cfg.Translation))
		for _, path := range cfg.Files {
			records, err := memstore.LoadFile(path, cfg.Translation)
			if err != nil {
				return nil, errors.Wrapf(err, "load %s", path)
			}
			s.Add(records...)
			logging.Info("verses loaded", "path", path, "records", len(records))
		}
		base = s

	default:
		return nil, errors.NewUnsupported("store backend", cfg.Backend)
	}

	h := &Handle{Store: base, Backend: cfg.Backend, closer: closer}
	if cfg.CacheSize > 0 {
		h.Store = NewCached(base, CacheOptions{Size: cfg.CacheSize, TTL: cfg.CacheTTL})
	}
	return h, nil
}
