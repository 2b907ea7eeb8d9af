// Package memstore is an in-memory verse store loaded from JSONL or OSIS XML
// files, optionally xz-compressed.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/FocuswithJustin/BibleEcho/core/errors"
	"github.com/FocuswithJustin/BibleEcho/core/verse"
)

// Backend names this store in errors and metrics.
const Backend = "memory"

// Store holds verses in insertion order. It is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	records     []verse.Record
	translation string
}

// Option configures a Store.
type Option func(*Store)

// WithTranslation selects the translation served by lookups and searches.
func WithTranslation(t string) Option {
	return func(s *Store) {
		if t != "" {
			s.translation = t
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{translation: verse.DefaultTranslation}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add appends records. Records without a translation get the store's.
func (s *Store) Add(records ...verse.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r.Translation == "" {
			r.Translation = s.translation
		}
		s.records = append(s.records, r)
	}
}

// Len returns the number of records held across all translations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Translation returns the translation served by the store.
func (s *Store) Translation() string {
	return s.translation
}

// Ping reports whether the store holds any verse.
func (s *Store) Ping(ctx context.Context) error {
	if s.Len() == 0 {
		return errors.NewStore(Backend, "ping", errors.Join(verse.ErrStoreUnavailable, errors.NewNotFound("verses", "")))
	}
	return nil
}

// LookupExact returns the verses addressed by q in ascending verse order.
func (s *Store) LookupExact(ctx context.Context, q verse.Query) ([]verse.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewStore(Backend, "lookup", errors.Join(verse.ErrStoreUnavailable, err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []verse.Record{}
	for _, r := range s.records {
		if r.Translation == s.translation && q.Matches(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Verse < out[j].Verse })
	return out, nil
}

// SearchKeyword returns up to limit verses whose text contains phrase,
// case-insensitively, in insertion order.
func (s *Store) SearchKeyword(ctx context.Context, phrase string, limit int) ([]verse.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewStore(Backend, "search", errors.Join(verse.ErrStoreUnavailable, err))
	}

	needle := strings.ToLower(phrase)
	out := []verse.Record{}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if len(out) >= limit {
			break
		}
		if r.Translation == s.translation && strings.Contains(strings.ToLower(r.Text), needle) {
			out = append(out, r)
		}
	}
	return out, nil
}
