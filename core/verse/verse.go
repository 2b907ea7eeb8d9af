// Package verse defines verse records and the store abstraction the resolver
// reads them from.
package verse

import (
	"context"
	"fmt"

	"github.com/FocuswithJustin/BibleEcho/core/canon"
	"github.com/FocuswithJustin/BibleEcho/core/errors"
)

// DefaultTranslation is the translation stores serve when none is configured.
const DefaultTranslation = "KJV"

// ErrStoreUnavailable is matched by every error a Store returns when its
// backing data cannot be reached.
var ErrStoreUnavailable = errors.ErrUnavailable

// Record is one verse of scripture.
type Record struct {
	Translation string `json:"version"`
	Book        string `json:"book"`
	Chapter     int    `json:"chapter"`
	Verse       int    `json:"verse"`
	Text        string `json:"text"`
}

// Reference renders the record location, e.g. "John 3:16".
func (r Record) Reference() string {
	return fmt.Sprintf("%s %d:%d", r.Book, r.Chapter, r.Verse)
}

// Query addresses verses by location. VerseStart 0 selects the whole chapter;
// otherwise VerseEnd 0 is treated as VerseStart.
type Query struct {
	Book       canon.Book
	Chapter    int
	VerseStart int
	VerseEnd   int
}

// Bounds returns the inclusive verse span. Whole-chapter queries return 0, 0.
func (q Query) Bounds() (start, end int) {
	if q.VerseStart <= 0 {
		return 0, 0
	}
	end = q.VerseEnd
	if end < q.VerseStart {
		end = q.VerseStart
	}
	return q.VerseStart, end
}

// Matches reports whether rec falls within the query.
func (q Query) Matches(rec Record) bool {
	if rec.Book != q.Book.String() || rec.Chapter != q.Chapter {
		return false
	}
	start, end := q.Bounds()
	if start == 0 {
		return true
	}
	return rec.Verse >= start && rec.Verse <= end
}

// String renders the query the way references are displayed.
func (q Query) String() string {
	start, end := q.Bounds()
	switch {
	case start == 0:
		return fmt.Sprintf("%s %d", q.Book, q.Chapter)
	case start == end:
		return fmt.Sprintf("%s %d:%d", q.Book, q.Chapter, start)
	default:
		return fmt.Sprintf("%s %d:%d-%d", q.Book, q.Chapter, start, end)
	}
}

// Store provides read access to verse text. Implementations must be safe for
// concurrent use and return records in canonical order.
type Store interface {
	// LookupExact returns the verses addressed by q. An empty result is not
	// an error.
	LookupExact(ctx context.Context, q Query) ([]Record, error)

	// SearchKeyword returns up to limit verses whose text contains the
	// phrase, compared case-insensitively.
	SearchKeyword(ctx context.Context, phrase string, limit int) ([]Record, error)
}
