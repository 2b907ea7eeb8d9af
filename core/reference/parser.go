// Package reference recognises scripture references in free-form text.
//
// Parsing is a single regular-expression scan: every alias from the canon
// table is joined into one alternation, longest alias first, and followed by
// the chapter/verse grammar
//
//	<alias> <chapter> [(":"|" ") <verse> [("-"|"–") <end>]]
//
// Go's regexp alternation is leftmost-first, so listing longer aliases
// earlier guarantees that "1 john 2:5" resolves to 1 John and never to John.
package reference

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/FocuswithJustin/BibleEcho/core/canon"
)

// DefaultConfidence is assigned to every candidate that matches the grammar.
const DefaultConfidence = 0.9

// verbalSeparators rewrites spoken separators into the written grammar.
// Order matters: strings.Replacer tries earlier pairs first at each position.
var verbalSeparators = strings.NewReplacer(
	"chapter ", "",
	", verses ", ":",
	", verse ", ":",
	" verses ", ":",
	" verse ", ":",
	" through ", "-",
	" thru ", "-",
)

// pattern is compiled from the alias table on first use and shared by every
// parser for the lifetime of the process.
var pattern = sync.OnceValue(func() *regexp.Regexp {
	aliases := canon.Aliases()
	alts := make([]string, len(aliases))
	for i, a := range aliases {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(a), " ", `\s+`)
	}

	return regexp.MustCompile(`\b(` + strings.Join(alts, "|") + `)` +
		`\s*(\d+)` +
		`(?:(?:\s*:\s*|\s+)(\d+)(?:\s*[-–]\s*(\d+))?)?`)
})

// Parser turns text into reference candidates. The zero value is not usable;
// construct one with New.
type Parser struct {
	confidence float64
}

// Option configures a Parser.
type Option func(*Parser)

// WithConfidence overrides the confidence assigned to grammar matches.
// Values outside (0,1] are ignored.
func WithConfidence(c float64) Option {
	return func(p *Parser) {
		if c > 0 && c <= 1 {
			p.confidence = c
		}
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{confidence: DefaultConfidence}
	for _, o := range opts {
		o(p)
	}
	return p
}

var defaultParser = New()

// Parse scans text with the default parser.
func Parse(text string) []Candidate {
	return defaultParser.Parse(text)
}

// Normalize case-folds and trims text and rewrites verbal verse separators
// ("john chapter 3 verse 16" becomes "john 3:16").
func Normalize(text string) string {
	return verbalSeparators.Replace(strings.TrimSpace(strings.ToLower(text)))
}

// Parse returns every reference found in text, in order of appearance.
// Duplicates are kept. Spans that match the grammar but name a zero chapter or
// verse, or a range that ends before it starts, are dropped. Parse never
// fails: text without any reference yields an empty slice.
func (p *Parser) Parse(text string) []Candidate {
	normalized := Normalize(text)
	if normalized == "" {
		return []Candidate{}
	}

	re := pattern()
	candidates := []Candidate{}

	for pos := 0; pos < len(normalized); {
		m := re.FindStringSubmatchIndex(normalized[pos:])
		if m == nil {
			break
		}
		for i := range m {
			if m[i] >= 0 {
				m[i] += pos
			}
		}
		// \b at the start of the slice is not a boundary in the full text.
		if m[0] == pos && pos > 0 && isWordByte(normalized[pos-1]) && isWordByte(normalized[pos]) {
			pos++
			continue
		}
		pos = m[1]

		// A trailing number that starts another reference ("john 3:16 - 1
		// john 4:8", "psalm 23 1 john 4:8") belongs to that reference: cut
		// this span before it and resume scanning there. A number after a
		// colon is always a verse.
		if m[8] >= 0 && startsReference(re, normalized[m[8]:]) {
			m[8], m[9], m[1] = -1, -1, m[7]
			pos = m[7]
		}
		if m[6] >= 0 && !strings.Contains(normalized[m[5]:m[6]], ":") && startsReference(re, normalized[m[6]:]) {
			m[6], m[7], m[8], m[9], m[1] = -1, -1, -1, -1, m[5]
			pos = m[5]
		}

		book, ok := canon.ResolveAlias(normalized[m[2]:m[3]])
		if !ok {
			continue
		}

		chapter, ok := positive(normalized[m[4]:m[5]])
		if !ok {
			continue
		}

		c := Candidate{
			Book:       book,
			Chapter:    chapter,
			Raw:        normalized[m[0]:m[1]],
			Confidence: p.confidence,
		}

		if m[6] >= 0 {
			if c.VerseStart, ok = positive(normalized[m[6]:m[7]]); !ok {
				continue
			}
			c.VerseEnd = c.VerseStart
			if m[8] >= 0 {
				if c.VerseEnd, ok = positive(normalized[m[8]:m[9]]); !ok {
					continue
				}
			}
		}

		if c.Validate() != nil {
			continue
		}
		candidates = append(candidates, c)
	}

	return candidates
}

// startsReference reports whether a reference match begins at the start of s.
func startsReference(re *regexp.Regexp, s string) bool {
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0
}

func isWordByte(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

// positive parses a decimal string that must be >= 1 and fit in an int.
func positive(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
