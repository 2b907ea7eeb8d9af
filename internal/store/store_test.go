package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FocuswithJustin/BibleEcho/core/canon"
	"github.com/FocuswithJustin/BibleEcho/core/errors"
	"github.com/FocuswithJustin/BibleEcho/core/sqlite"
	"github.com/FocuswithJustin/BibleEcho/core/verse"
	"github.com/FocuswithJustin/BibleEcho/internal/config"
	"github.com/FocuswithJustin/BibleEcho/internal/store/sqlstore"
)

// countingStore counts backend calls and can block or fail on demand.
type countingStore struct {
	lookups  atomic.Int32
	searches atomic.Int32
	fail     atomic.Bool
	release  chan struct{}
}

func (s *countingStore) LookupExact(ctx context.Context, q verse.Query) ([]verse.Record, error) {
	s.lookups.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.fail.Load() {
		return nil, errors.NewStore("fake", "lookup", verse.ErrStoreUnavailable)
	}
	return []verse.Record{{Translation: "KJV", Book: q.Book.String(), Chapter: q.Chapter, Verse: q.VerseStart, Text: "text"}}, nil
}

func (s *countingStore) SearchKeyword(ctx context.Context, phrase string, limit int) ([]verse.Record, error) {
	s.searches.Add(1)
	return []verse.Record{}, nil
}

func TestCachedLookup(t *testing.T) {
	backend := &countingStore{}
	c := NewCached(backend, CacheOptions{Size: 10})
	ctx := context.Background()
	q := verse.Query{Book: canon.John, Chapter: 3, VerseStart: 16, VerseEnd: 16}

	for i := 0; i < 3; i++ {
		got, err := c.LookupExact(ctx, q)
		if err != nil || len(got) != 1 {
			t.Fatalf("LookupExact = %v, %v", got, err)
		}
	}
	if n := backend.lookups.Load(); n != 1 {
		t.Errorf("backend called %d times, want 1", n)
	}

	// VerseEnd 0 is the same single verse.
	if _, err := c.LookupExact(ctx, verse.Query{Book: canon.John, Chapter: 3, VerseStart: 16}); err != nil {
		t.Fatal(err)
	}
	if n := backend.lookups.Load(); n != 1 {
		t.Errorf("equivalent query missed the cache, backend calls = %d", n)
	}

	s := c.Stats()
	if s.Hits != 3 || s.Misses != 1 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestCachedReturnsCopies(t *testing.T) {
	c := NewCached(&countingStore{}, CacheOptions{Size: 10})
	q := verse.Query{Book: canon.John, Chapter: 3, VerseStart: 16}

	first, _ := c.LookupExact(context.Background(), q)
	first[0].Text = "mutated"

	second, _ := c.LookupExact(context.Background(), q)
	if second[0].Text != "text" {
		t.Error("caller mutation leaked into the cache")
	}
}

func TestCachedErrorsNotCached(t *testing.T) {
	backend := &countingStore{}
	backend.fail.Store(true)
	c := NewCached(backend, CacheOptions{Size: 10})
	q := verse.Query{Book: canon.Jude, Chapter: 1, VerseStart: 3}

	if _, err := c.LookupExact(context.Background(), q); !errors.Is(err, verse.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	backend.fail.Store(false)
	if _, err := c.LookupExact(context.Background(), q); err != nil {
		t.Fatalf("LookupExact after recovery: %v", err)
	}
	if n := backend.lookups.Load(); n != 2 {
		t.Errorf("backend calls = %d, want 2", n)
	}
}

func TestCachedSingleflight(t *testing.T) {
	backend := &countingStore{release: make(chan struct{})}
	c := NewCached(backend, CacheOptions{Size: 10})
	q := verse.Query{Book: canon.Romans, Chapter: 8, VerseStart: 28}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.LookupExact(context.Background(), q); err != nil {
				t.Error(err)
			}
		}()
	}

	// Wait for the first backend call to be in flight, then let it finish.
	deadline := time.Now().Add(5 * time.Second)
	for backend.lookups.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(backend.release)
	wg.Wait()

	if n := backend.lookups.Load(); n > 2 {
		t.Errorf("backend called %d times for identical concurrent lookups", n)
	}
}

func TestCachedTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	backend := &countingStore{}
	c := NewCached(backend, CacheOptions{Size: 10, TTL: time.Minute, Now: func() time.Time { return now }})
	q := verse.Query{Book: canon.John, Chapter: 1, VerseStart: 1}

	c.LookupExact(context.Background(), q)
	now = now.Add(2 * time.Minute)
	c.LookupExact(context.Background(), q)

	if n := backend.lookups.Load(); n != 2 {
		t.Errorf("expired entry served from cache, backend calls = %d", n)
	}
}

func TestCachedSearchPassThrough(t *testing.T) {
	backend := &countingStore{}
	c := NewCached(backend, CacheOptions{Size: 10})
	for i := 0; i < 2; i++ {
		if _, err := c.SearchKeyword(context.Background(), "love", 10); err != nil {
			t.Fatal(err)
		}
	}
	if n := backend.searches.Load(); n != 2 {
		t.Errorf("keyword searches should not be cached, backend calls = %d", n)
	}
}

func TestOpenMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kjv.jsonl")
	data := `{"book":"John","chapter":11,"verse":35,"text":"Jesus wept."}` + "\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	h, err := Open(config.StoreConfig{
		Backend:     config.BackendMemory,
		Files:       []string{path},
		Translation: "KJV",
		CacheSize:   16,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	if h.Backend != config.BackendMemory {
		t.Errorf("Backend = %q", h.Backend)
	}
	if err := h.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	got, err := h.LookupExact(context.Background(), verse.Query{Book: canon.John, Chapter: 11, VerseStart: 35})
	if err != nil || len(got) != 1 || got[0].Text != "Jesus wept." {
		t.Fatalf("LookupExact = %v, %v", got, err)
	}
	if _, ok := h.CacheStats(); !ok {
		t.Error("expected cache to be enabled")
	}
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bible.db")
	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.Exec(sqlstore.Schema); err != nil {
		t.Fatal(err)
	}
	rec := verse.Record{Book: "Psalms", Chapter: 23, Verse: 1, Text: "The LORD is my shepherd; I shall not want."}
	if err := sqlstore.New(db).Insert(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	db.Close()

	h, err := Open(config.StoreConfig{Backend: config.BackendSQLite, Path: path, Translation: "KJV"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	if _, ok := h.CacheStats(); ok {
		t.Error("cache should be disabled when cache_size is 0")
	}
	if err := h.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	got, err := h.SearchKeyword(context.Background(), "shepherd", 5)
	if err != nil || len(got) != 1 {
		t.Fatalf("SearchKeyword = %v, %v", got, err)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(config.StoreConfig{Backend: "postgres"}); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("expected unsupported backend error, got %v", err)
	}

	_, err := Open(config.StoreConfig{
		Backend: config.BackendMemory,
		Files:   []string{filepath.Join(t.TempDir(), "missing.jsonl")},
	})
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func ExampleNewCached() {
	backend := &countingStore{}
	c := NewCached(backend, CacheOptions{Size: 8})
	q := verse.Query{Book: canon.John, Chapter: 3, VerseStart: 16}

	c.LookupExact(context.Background(), q)
	c.LookupExact(context.Background(), q)
	fmt.Println(backend.lookups.Load(), c.Stats().Hits)
	// Output: 1 1
}
