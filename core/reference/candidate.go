package reference

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/BibleEcho/core/canon"
	"github.com/FocuswithJustin/BibleEcho/core/errors"
)

// Candidate is a structured reference recognised in free-form text.
type Candidate struct {
	// Book is the canonical book.
	Book canon.Book `json:"book"`

	// Chapter is the chapter number (always >= 1).
	Chapter int `json:"chapter"`

	// VerseStart is the first verse, 0 for whole-chapter references.
	VerseStart int `json:"verse_start,omitempty"`

	// VerseEnd is the last verse of the range, 0 when VerseStart is 0.
	// A single verse is a one-verse range (VerseEnd == VerseStart).
	VerseEnd int `json:"verse_end,omitempty"`

	// Raw is the matched span of the normalized input.
	Raw string `json:"raw,omitempty"`

	// Confidence is the match certainty in (0,1].
	Confidence float64 `json:"confidence"`
}

// HasVerse reports whether the candidate names specific verses.
func (c Candidate) HasVerse() bool {
	return c.VerseStart > 0
}

// IsRange reports whether the candidate spans more than one verse.
func (c Candidate) IsRange() bool {
	return c.VerseStart > 0 && c.VerseEnd > c.VerseStart
}

// Validate checks the candidate invariants.
func (c Candidate) Validate() error {
	if !c.Book.Valid() {
		return errors.NewValidation("book", "unknown book")
	}
	if c.Chapter < 1 {
		return errors.NewValidation("chapter", "must be positive")
	}
	if c.VerseStart < 0 || c.VerseEnd < 0 {
		return errors.NewValidation("verse", "must be positive")
	}
	if c.VerseEnd > 0 && c.VerseStart == 0 {
		return errors.NewValidation("verse_end", "requires verse_start")
	}
	if c.VerseEnd > 0 && c.VerseEnd < c.VerseStart {
		return errors.NewRange(c.VerseStart, c.VerseEnd)
	}
	return nil
}

// String renders the human-readable reference: "John 3:16", "John 3:16-18"
// or "Psalms 23".
func (c Candidate) String() string {
	var sb strings.Builder
	sb.WriteString(c.Book.String())
	sb.WriteString(" ")
	sb.WriteString(strconv.Itoa(c.Chapter))

	if c.VerseStart > 0 {
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(c.VerseStart))
		if c.IsRange() {
			sb.WriteString("-")
			sb.WriteString(strconv.Itoa(c.VerseEnd))
		}
	}

	return sb.String()
}

// OSISID renders the OSIS form: "John.3.16", "John.3.16-18" or "Ps.23".
func (c Candidate) OSISID() string {
	var sb strings.Builder
	sb.WriteString(c.Book.OSIS())
	sb.WriteString(".")
	sb.WriteString(strconv.Itoa(c.Chapter))

	if c.VerseStart > 0 {
		sb.WriteString(".")
		sb.WriteString(strconv.Itoa(c.VerseStart))
		if c.IsRange() {
			sb.WriteString("-")
			sb.WriteString(strconv.Itoa(c.VerseEnd))
		}
	}

	return sb.String()
}

// MarshalJSON adds the rendered reference and OSIS ID to the encoded form.
func (c Candidate) MarshalJSON() ([]byte, error) {
	type plain Candidate
	return json.Marshal(struct {
		plain
		Reference string `json:"reference"`
		OSISID    string `json:"osis_id"`
	}{
		plain:     plain(c),
		Reference: c.String(),
		OSISID:    c.OSISID(),
	})
}
