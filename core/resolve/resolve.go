// Package resolve turns free-form text into verses: structured references are
// looked up exactly, and only text without any reference falls back to a
// keyword search.
package resolve

import (
	"context"
	"strings"
	"time"

	"github.com/FocuswithJustin/BibleEcho/core/reference"
	"github.com/FocuswithJustin/BibleEcho/core/verse"
	"github.com/FocuswithJustin/BibleEcho/internal/logging"
)

// Suggestion is returned whenever a query resolves to no verses.
const Suggestion = `Try a specific reference like "John 3:16" or a keyword like "love"`

// Source records which path produced a result.
type Source string

// Resolution sources.
const (
	SourceReference Source = "reference"
	SourceKeyword   Source = "keyword"
	SourceNone      Source = "none"
)

// Config holds the resolution policy constants.
type Config struct {
	// ExactConfidence tags verses found through a parsed reference.
	ExactConfidence float64 `yaml:"exact_confidence"`

	// KeywordConfidence tags verses found through keyword search.
	KeywordConfidence float64 `yaml:"keyword_confidence"`

	// KeywordLimit caps keyword search results.
	KeywordLimit int `yaml:"keyword_limit"`
}

// DefaultConfig returns the standard policy.
func DefaultConfig() Config {
	return Config{
		ExactConfidence:   reference.DefaultConfidence,
		KeywordConfidence: 0.6,
		KeywordLimit:      10,
	}
}

// Recorder observes resolutions. Implementations must be safe for concurrent
// use.
type Recorder interface {
	ObserveResolution(source Source, verses int, elapsed time.Duration)
	ObserveStoreError(op string)
}

// Match is one resolved verse.
type Match struct {
	verse.Record
	Reference  string  `json:"reference"`
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of resolving one query.
type Result struct {
	Query      string                `json:"query"`
	Source     Source                `json:"source"`
	Candidates []reference.Candidate `json:"references"`
	Verses     []Match               `json:"verses"`
	Suggestion string                `json:"suggestion,omitempty"`
}

// Found reports whether any verse was resolved.
func (r Result) Found() bool {
	return len(r.Verses) > 0
}

// Resolver applies the reference-first, keyword-fallback policy against a
// verse store. It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	store    verse.Store
	parser   *reference.Parser
	cfg      Config
	recorder Recorder
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConfig replaces the policy constants. Non-positive values keep their
// defaults.
func WithConfig(cfg Config) Option {
	return func(r *Resolver) {
		if cfg.ExactConfidence > 0 && cfg.ExactConfidence <= 1 {
			r.cfg.ExactConfidence = cfg.ExactConfidence
		}
		if cfg.KeywordConfidence > 0 && cfg.KeywordConfidence <= 1 {
			r.cfg.KeywordConfidence = cfg.KeywordConfidence
		}
		if cfg.KeywordLimit > 0 {
			r.cfg.KeywordLimit = cfg.KeywordLimit
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Resolver) {
		r.recorder = rec
	}
}

// New creates a Resolver reading from store.
func New(store verse.Store, opts ...Option) *Resolver {
	r := &Resolver{
		store: store,
		cfg:   DefaultConfig(),
	}
	for _, o := range opts {
		o(r)
	}
	r.parser = reference.New(reference.WithConfidence(r.cfg.ExactConfidence))
	return r
}

// Config returns the effective policy.
func (r *Resolver) Config() Config {
	return r.cfg
}

// Parse runs the resolver's parser without touching the store.
func (r *Resolver) Parse(text string) []reference.Candidate {
	return r.parser.Parse(text)
}

// Resolve resolves text to verses. It never fails: store errors are logged
// and treated as empty results, and a query with no verses carries the
// suggestion. ctx is passed to every store call.
func (r *Resolver) Resolve(ctx context.Context, text string) Result {
	start := time.Now()

	res := Result{
		Query:      text,
		Source:     SourceNone,
		Candidates: r.parser.Parse(text),
		Verses:     []Match{},
	}

	switch {
	case len(res.Candidates) > 0:
		res.Source = SourceReference
		res.Verses = r.lookup(ctx, res.Candidates)
	case strings.TrimSpace(text) != "":
		res.Source = SourceKeyword
		res.Verses = r.search(ctx, strings.TrimSpace(text))
	}

	if len(res.Verses) == 0 {
		res.Suggestion = Suggestion
	}

	elapsed := time.Since(start)
	if r.recorder != nil {
		r.recorder.ObserveResolution(res.Source, len(res.Verses), elapsed)
	}
	logging.Resolution(ctx, text, string(res.Source), len(res.Verses), elapsed)

	return res
}

// ResolveCandidate looks up one already-parsed reference.
func (r *Resolver) ResolveCandidate(ctx context.Context, c reference.Candidate) ([]Match, error) {
	records, err := r.store.LookupExact(ctx, QueryFor(c))
	if err != nil {
		r.storeFailed(ctx, "lookup", err, c.String())
		return nil, err
	}
	return tag(records, c.Confidence), nil
}

// QueryFor converts a candidate into a store query.
func QueryFor(c reference.Candidate) verse.Query {
	return verse.Query{
		Book:       c.Book,
		Chapter:    c.Chapter,
		VerseStart: c.VerseStart,
		VerseEnd:   c.VerseEnd,
	}
}

func (r *Resolver) lookup(ctx context.Context, candidates []reference.Candidate) []Match {
	matches := []Match{}
	for _, c := range candidates {
		found, err := r.ResolveCandidate(ctx, c)
		if err != nil {
			continue
		}
		matches = append(matches, found...)
	}
	return matches
}

func (r *Resolver) search(ctx context.Context, text string) []Match {
	records, err := r.store.SearchKeyword(ctx, text, r.cfg.KeywordLimit)
	if err != nil {
		r.storeFailed(ctx, "search", err, text)
		return []Match{}
	}
	return tag(records, r.cfg.KeywordConfidence)
}

func (r *Resolver) storeFailed(ctx context.Context, op string, err error, query string) {
	if r.recorder != nil {
		r.recorder.ObserveStoreError(op)
	}
	logging.StoreError(ctx, op, err, "query", query)
}

func tag(records []verse.Record, confidence float64) []Match {
	out := make([]Match, 0, len(records))
	for _, rec := range records {
		out = append(out, Match{
			Record:     rec,
			Reference:  rec.Reference(),
			Confidence: confidence,
		})
	}
	return out
}
