// Package canon defines the canonical books of the Bible and the fixed alias
// table used to recognise them in free-form text.
//
// The table is built once during package initialization and never mutated
// afterwards, so every exported function is safe for concurrent use.
package canon

import (
	"fmt"
	"sort"
	"strings"
)

// Book is a canonical book identifier. The zero value is not a valid book.
type Book int

// Canonical books in Protestant canonical order.
const (
	Genesis Book = iota + 1
	Exodus
	Leviticus
	Numbers
	Deuteronomy
	Joshua
	Judges
	Ruth
	Samuel1
	Samuel2
	Kings1
	Kings2
	Chronicles1
	Chronicles2
	Ezra
	Nehemiah
	Esther
	Job
	Psalms
	Proverbs
	Ecclesiastes
	SongOfSolomon
	Isaiah
	Jeremiah
	Lamentations
	Ezekiel
	Daniel
	Hosea
	Joel
	Amos
	Obadiah
	Jonah
	Micah
	Nahum
	Habakkuk
	Zephaniah
	Haggai
	Zechariah
	Malachi
	Matthew
	Mark
	Luke
	John
	Acts
	Romans
	Corinthians1
	Corinthians2
	Galatians
	Ephesians
	Philippians
	Colossians
	Thessalonians1
	Thessalonians2
	Timothy1
	Timothy2
	Titus
	Philemon
	Hebrews
	James
	Peter1
	Peter2
	John1
	John2
	John3
	Jude
	Revelation
)

// Testament identifies which half of the canon a book belongs to.
type Testament string

// Testament constants.
const (
	OldTestament Testament = "OT"
	NewTestament Testament = "NT"
)

// info is the static description of one book.
type info struct {
	name    string
	osis    string
	aliases []string
}

var (
	// books is indexed by Book; index 0 is unused.
	books []info

	// aliasTable maps a lowercase alias to its book.
	aliasTable map[string]Book

	// aliasesByLength holds the alias keys sorted longest-first.
	aliasesByLength []string

	// osisTable maps a lowercase OSIS book ID to its book.
	osisTable map[string]Book
)

func init() {
	books = bookTable()
	aliasTable = make(map[string]Book, len(books)*8)
	osisTable = make(map[string]Book, len(books))

	for i := 1; i < len(books); i++ {
		b := Book(i)
		osisTable[strings.ToLower(books[i].osis)] = b

		keys := append([]string{books[i].name, books[i].osis}, books[i].aliases...)
		for _, k := range keys {
			addAlias(normalize(k), b)
		}
	}

	aliasesByLength = make([]string, 0, len(aliasTable))
	for k := range aliasTable {
		aliasesByLength = append(aliasesByLength, k)
	}
	sort.Slice(aliasesByLength, func(i, j int) bool {
		a, b := aliasesByLength[i], aliasesByLength[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
}

// addAlias registers alias for b and panics if the alias already names a
// different book.
func addAlias(alias string, b Book) {
	if alias == "" {
		return
	}
	if prev, ok := aliasTable[alias]; ok && prev != b {
		panic(fmt.Sprintf("canon: alias %q maps to both %s and %s", alias, prev, b))
	}
	aliasTable[alias] = b
}

// normalize case-folds s and collapses internal whitespace runs.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ResolveAlias returns the book named by token. Matching is case-insensitive
// and whitespace-insensitive; multi-word aliases such as "song of solomon" are
// single tokens.
func ResolveAlias(token string) (Book, bool) {
	b, ok := aliasTable[normalize(token)]
	return b, ok
}

// Aliases returns every alias key sorted longest-first, ties broken
// lexically. Callers building alternation patterns rely on this order so that
// "1 john" is tried before "john".
func Aliases() []string {
	out := make([]string, len(aliasesByLength))
	copy(out, aliasesByLength)
	return out
}

// Books returns all canonical books in canonical order.
func Books() []Book {
	out := make([]Book, 0, len(books)-1)
	for i := 1; i < len(books); i++ {
		out = append(out, Book(i))
	}
	return out
}

// ByName returns the book whose display name matches name, ignoring case.
func ByName(name string) (Book, bool) {
	n := normalize(name)
	for i := 1; i < len(books); i++ {
		if strings.ToLower(books[i].name) == n {
			return Book(i), true
		}
	}
	return 0, false
}

// ByOSIS returns the book with the given OSIS book ID (e.g. "1Cor"), ignoring case.
func ByOSIS(id string) (Book, bool) {
	b, ok := osisTable[strings.ToLower(strings.TrimSpace(id))]
	return b, ok
}

// Valid reports whether b is a known book.
func (b Book) Valid() bool {
	return b >= Genesis && int(b) < len(books)
}

// String returns the display name, e.g. "1 Corinthians".
func (b Book) String() string {
	if !b.Valid() {
		return fmt.Sprintf("Book(%d)", int(b))
	}
	return books[b].name
}

// OSIS returns the OSIS book ID, e.g. "1Cor".
func (b Book) OSIS() string {
	if !b.Valid() {
		return ""
	}
	return books[b].osis
}

// Testament returns the testament the book belongs to.
func (b Book) Testament() Testament {
	if b >= Matthew {
		return NewTestament
	}
	return OldTestament
}

// MarshalText encodes the book as its display name.
func (b Book) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("canon: invalid book %d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText accepts a display name, OSIS ID or any alias.
func (b *Book) UnmarshalText(text []byte) error {
	s := string(text)
	if v, ok := ByName(s); ok {
		*b = v
		return nil
	}
	if v, ok := ByOSIS(s); ok {
		*b = v
		return nil
	}
	if v, ok := ResolveAlias(s); ok {
		*b = v
		return nil
	}
	return fmt.Errorf("canon: unknown book %q", s)
}
