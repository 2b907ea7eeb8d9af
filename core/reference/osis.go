package reference

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/BibleEcho/core/canon"
	"github.com/FocuswithJustin/BibleEcho/core/errors"
)

// OSISConfidence is assigned to references parsed from OSIS IDs.
const OSISConfidence = 1.0

// osisGrammar is the participle grammar for OSIS-style references.
// Examples: "Ps.23", "John.3.16", "John.3.16-18", "1John.2.5"
//
//nolint:govet // participle grammar tags are not standard struct tags
type osisGrammar struct {
	BookPrefix string       `@Int?`
	BookName   string       `@Ident`
	Chapter    *osisChapter `( "." @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type osisChapter struct {
	Number int        `@Int`
	Verse  *osisVerse `( "." @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type osisVerse struct {
	Number int  `@Int`
	End    *int `( "-" @Int )?`
}

var osisLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z]+`},
	{Name: "Punct", Pattern: `[.\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var osisParser = participle.MustBuild[osisGrammar](
	participle.Lexer(osisLexer),
	participle.Elide("Whitespace"),
)

// ParseOSIS parses an OSIS reference ID such as "John.3.16" or "Ps.23".
// The book may be given by OSIS ID or any alias without spaces. A chapter is
// required; a bare book ID is rejected. Ranges that end before they start
// return a *errors.RangeError.
func ParseOSIS(id string) (Candidate, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Candidate{}, errors.NewValidation("osis_id", "must not be empty")
	}

	parsed, err := osisParser.ParseString("", id)
	if err != nil {
		perr := errors.NewParse("OSIS reference", "", id)
		perr.Err = errors.Join(errors.ErrInvalidInput, err)
		return Candidate{}, perr
	}

	name := parsed.BookPrefix + parsed.BookName
	book, ok := canon.ByOSIS(name)
	if !ok {
		if book, ok = canon.ResolveAlias(name); !ok {
			return Candidate{}, errors.NewNotFound("book", name)
		}
	}

	if parsed.Chapter == nil {
		return Candidate{}, errors.NewValidation("chapter", "required in "+id)
	}

	c := Candidate{
		Book:       book,
		Chapter:    parsed.Chapter.Number,
		Raw:        id,
		Confidence: OSISConfidence,
	}
	if v := parsed.Chapter.Verse; v != nil {
		if v.Number < 1 {
			return Candidate{}, errors.NewValidation("verse", "must be positive")
		}
		c.VerseStart = v.Number
		c.VerseEnd = v.Number
		if v.End != nil {
			if *v.End < v.Number {
				return Candidate{}, errors.NewRange(v.Number, *v.End)
			}
			c.VerseEnd = *v.End
		}
	}

	if err := c.Validate(); err != nil {
		return Candidate{}, err
	}
	return c, nil
}
