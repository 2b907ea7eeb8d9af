package resolve

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FocuswithJustin/BibleEcho/core/canon"
	"github.com/FocuswithJustin/BibleEcho/core/errors"
	"github.com/FocuswithJustin/BibleEcho/core/verse"
)

// fakeStore is an in-memory verse.Store that records its calls.
type fakeStore struct {
	mu        sync.Mutex
	records   []verse.Record
	lookupErr error
	searchErr error
	lookups   []verse.Query
	searches  []string
	lastCtx   context.Context
}

func (s *fakeStore) LookupExact(ctx context.Context, q verse.Query) ([]verse.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, q)
	s.lastCtx = ctx
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	var out []verse.Record
	for _, r := range s.records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) SearchKeyword(ctx context.Context, phrase string, limit int) ([]verse.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = append(s.searches, phrase)
	s.lastCtx = ctx
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	var out []verse.Record
	for _, r := range s.records {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(r.Text), strings.ToLower(phrase)) {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeRecorder counts observations.
type fakeRecorder struct {
	mu          sync.Mutex
	sources     []Source
	storeErrors []string
}

func (f *fakeRecorder) ObserveResolution(source Source, verses int, elapsed time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, source)
}

func (f *fakeRecorder) ObserveStoreError(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeErrors = append(f.storeErrors, op)
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	return &fakeStore{records: []verse.Record{
		{Translation: "KJV", Book: "Genesis", Chapter: 1, Verse: 1, Text: "In the beginning God created the heaven and the earth."},
		{Translation: "KJV", Book: "John", Chapter: 3, Verse: 16, Text: "For God so loved the world, that he gave his only begotten Son, that whosoever believeth in him should not perish, but have everlasting life."},
		{Translation: "KJV", Book: "John", Chapter: 3, Verse: 17, Text: "For God sent not his Son into the world to condemn the world; but that the world through him might be saved."},
		{Translation: "KJV", Book: "1 John", Chapter: 4, Verse: 8, Text: "He that loveth not knoweth not God; for God is love."},
		{Translation: "KJV", Book: "Psalms", Chapter: 23, Verse: 1, Text: "The LORD is my shepherd; I shall not want."},
		{Translation: "KJV", Book: "Psalms", Chapter: 23, Verse: 2, Text: "He maketh me to lie down in green pastures: he leadeth me beside the still waters."},
	}}
}

func TestResolveReference(t *testing.T) {
	store := newFakeStore(t)
	r := New(store)

	res := r.Resolve(context.Background(), "turn to John 3:16")

	if res.Source != SourceReference {
		t.Errorf("Source = %q, want %q", res.Source, SourceReference)
	}
	if len(res.Verses) != 1 {
		t.Fatalf("got %d verses, want 1", len(res.Verses))
	}
	v := res.Verses[0]
	if v.Reference != "John 3:16" || v.Confidence != 0.9 {
		t.Errorf("unexpected match %+v", v)
	}
	if res.Suggestion != "" {
		t.Errorf("unexpected suggestion %q", res.Suggestion)
	}
	if len(store.searches) != 0 {
		t.Errorf("keyword search called: %v", store.searches)
	}
}

func TestResolveCandidatesInOrder(t *testing.T) {
	store := newFakeStore(t)
	res := New(store).Resolve(context.Background(), "1 John 4:8 then Psalm 23 and John 3:16-17")

	var got []string
	for _, v := range res.Verses {
		got = append(got, v.Reference)
	}
	want := []string{"1 John 4:8", "Psalms 23:1", "Psalms 23:2", "John 3:16", "John 3:17"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("verses = %v, want %v", got, want)
	}
	if len(store.lookups) != 3 {
		t.Errorf("expected 3 lookups, got %d", len(store.lookups))
	}
	if store.lookups[0].Book != canon.John1 {
		t.Errorf("first lookup book = %s, want 1 John", store.lookups[0].Book)
	}
}

func TestResolveMissingReferenceNoFallback(t *testing.T) {
	store := newFakeStore(t)
	res := New(store).Resolve(context.Background(), "Obadiah 1:1")

	if len(res.Verses) != 0 {
		t.Errorf("expected no verses, got %v", res.Verses)
	}
	if res.Suggestion != Suggestion {
		t.Errorf("Suggestion = %q", res.Suggestion)
	}
	if res.Source != SourceReference {
		t.Errorf("Source = %q, want reference", res.Source)
	}
	if len(store.searches) != 0 {
		t.Errorf("keyword search must not run when a reference was parsed, got %v", store.searches)
	}
}

func TestResolveKeyword(t *testing.T) {
	store := newFakeStore(t)
	res := New(store).Resolve(context.Background(), "shepherd")

	if res.Source != SourceKeyword {
		t.Errorf("Source = %q, want keyword", res.Source)
	}
	if len(res.Verses) != 1 || res.Verses[0].Reference != "Psalms 23:1" {
		t.Fatalf("unexpected verses %+v", res.Verses)
	}
	if res.Verses[0].Confidence != 0.6 {
		t.Errorf("Confidence = %v, want 0.6", res.Verses[0].Confidence)
	}
	if len(store.searches) != 1 || store.searches[0] != "shepherd" {
		t.Errorf("unexpected searches %v", store.searches)
	}
}

func TestResolveKeywordTrimsQuery(t *testing.T) {
	store := newFakeStore(t)
	res := New(store).Resolve(context.Background(), "  shepherd \t")

	if len(res.Verses) != 1 || res.Verses[0].Reference != "Psalms 23:1" {
		t.Fatalf("unexpected verses %+v", res.Verses)
	}
	if len(store.searches) != 1 || store.searches[0] != "shepherd" {
		t.Errorf("searched for %q, want trimmed phrase", store.searches)
	}
	if res.Query != "  shepherd \t" {
		t.Errorf("Query = %q, want the input unchanged", res.Query)
	}
}

func TestResolveNoMatch(t *testing.T) {
	store := newFakeStore(t)
	res := New(store).Resolve(context.Background(), "hello world")

	if len(res.Candidates) != 0 {
		t.Errorf("expected no candidates, got %v", res.Candidates)
	}
	if len(store.searches) != 1 {
		t.Errorf("expected one keyword search, got %d", len(store.searches))
	}
	if res.Verses == nil || len(res.Verses) != 0 {
		t.Errorf("expected empty non-nil verses, got %#v", res.Verses)
	}
	if res.Suggestion != Suggestion {
		t.Errorf("Suggestion = %q", res.Suggestion)
	}
}

func TestResolveEmptyInputSkipsStore(t *testing.T) {
	store := newFakeStore(t)
	res := New(store).Resolve(context.Background(), "   ")

	if res.Source != SourceNone {
		t.Errorf("Source = %q, want none", res.Source)
	}
	if len(store.lookups)+len(store.searches) != 0 {
		t.Error("store must not be called for empty input")
	}
	if res.Suggestion != Suggestion {
		t.Errorf("Suggestion = %q", res.Suggestion)
	}
}

func TestResolveKeywordLimit(t *testing.T) {
	store := newFakeStore(t)
	r := New(store, WithConfig(Config{KeywordLimit: 1, KeywordConfidence: 0.5}))

	res := r.Resolve(context.Background(), "god")
	if len(res.Verses) != 1 {
		t.Fatalf("got %d verses, want 1", len(res.Verses))
	}
	if res.Verses[0].Reference != "Genesis 1:1" {
		t.Errorf("first match = %q, want storage order", res.Verses[0].Reference)
	}
	if res.Verses[0].Confidence != 0.5 {
		t.Errorf("Confidence = %v", res.Verses[0].Confidence)
	}
	if got := r.Config().ExactConfidence; got != 0.9 {
		t.Errorf("ExactConfidence = %v, want default", got)
	}
}

func TestResolveStoreErrorsDegrade(t *testing.T) {
	unavailable := errors.NewStore("sqlite", "lookup", errors.Join(verse.ErrStoreUnavailable, fmt.Errorf("database is locked")))
	store := newFakeStore(t)
	store.lookupErr = unavailable
	store.searchErr = unavailable
	rec := &fakeRecorder{}
	r := New(store, WithRecorder(rec))

	for _, q := range []string{"John 3:16", "love"} {
		res := r.Resolve(context.Background(), q)
		if len(res.Verses) != 0 {
			t.Errorf("%q: expected no verses, got %v", q, res.Verses)
		}
		if res.Suggestion != Suggestion {
			t.Errorf("%q: expected suggestion", q)
		}
	}

	if !reflect.DeepEqual(rec.storeErrors, []string{"lookup", "search"}) {
		t.Errorf("store errors = %v", rec.storeErrors)
	}
	if !reflect.DeepEqual(rec.sources, []Source{SourceReference, SourceKeyword}) {
		t.Errorf("sources = %v", rec.sources)
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := New(newFakeStore(t))
	for _, q := range []string{"John 3:16", "love", "hello world", "Psalm 23"} {
		first := r.Resolve(context.Background(), q)
		second := r.Resolve(context.Background(), q)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%q: results differ:\n%+v\n%+v", q, first, second)
		}
	}
}

type ctxKey struct{}

func TestResolvePassesContext(t *testing.T) {
	store := newFakeStore(t)
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")
	New(store).Resolve(ctx, "John 3:16")

	if store.lastCtx == nil || store.lastCtx.Value(ctxKey{}) != "marker" {
		t.Error("store did not receive the caller's context")
	}
}

func TestResolveConcurrent(t *testing.T) {
	r := New(newFakeStore(t))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := r.Resolve(context.Background(), "john 3:16")
			if len(res.Verses) != 1 {
				t.Errorf("got %d verses", len(res.Verses))
			}
		}()
	}
	wg.Wait()
}
