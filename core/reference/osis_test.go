package reference

import (
	"testing"

	"github.com/FocuswithJustin/BibleEcho/core/canon"
	"github.com/FocuswithJustin/BibleEcho/core/errors"
)

func TestParseOSIS(t *testing.T) {
	tests := []struct {
		id   string
		want Candidate
	}{
		{"John.3.16", Candidate{Book: canon.John, Chapter: 3, VerseStart: 16, VerseEnd: 16}},
		{"John.3.16-18", Candidate{Book: canon.John, Chapter: 3, VerseStart: 16, VerseEnd: 18}},
		{"Ps.23", Candidate{Book: canon.Psalms, Chapter: 23}},
		{"1John.2.5", Candidate{Book: canon.John1, Chapter: 2, VerseStart: 5, VerseEnd: 5}},
		{"1cor.13.4", Candidate{Book: canon.Corinthians1, Chapter: 13, VerseStart: 4, VerseEnd: 4}},
		{"Revelation.22.21", Candidate{Book: canon.Revelation, Chapter: 22, VerseStart: 21, VerseEnd: 21}},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ParseOSIS(tt.id)
			if err != nil {
				t.Fatalf("ParseOSIS(%q): %v", tt.id, err)
			}
			want := tt.want
			want.Raw = tt.id
			want.Confidence = OSISConfidence
			if got != want {
				t.Errorf("ParseOSIS(%q) = %+v, want %+v", tt.id, got, want)
			}
		})
	}
}

func TestParseOSISRoundTrip(t *testing.T) {
	for _, id := range []string{"Gen.1.1", "Song.2.4", "3John.1.14", "Rev.1.1-3"} {
		c, err := ParseOSIS(id)
		if err != nil {
			t.Fatalf("ParseOSIS(%q): %v", id, err)
		}
		if c.OSISID() != id {
			t.Errorf("OSISID() = %q, want %q", c.OSISID(), id)
		}
	}
}

func TestParseOSISErrors(t *testing.T) {
	tests := []struct {
		id     string
		target error
	}{
		{"", errors.ErrInvalidInput},
		{"John", errors.ErrInvalidInput},
		{"John.0", errors.ErrInvalidInput},
		{"John.3.0", errors.ErrInvalidInput},
		{"John.3:16", errors.ErrInvalidInput},
		{"Hezekiah.1.1", errors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := ParseOSIS(tt.id)
			if err == nil {
				t.Fatalf("ParseOSIS(%q) succeeded, want error", tt.id)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("ParseOSIS(%q) error %v does not match %v", tt.id, err, tt.target)
			}
		})
	}
}

func TestParseOSISInvertedRange(t *testing.T) {
	_, err := ParseOSIS("John.3.18-16")
	var re *errors.RangeError
	if !errors.As(err, &re) {
		t.Fatalf("expected RangeError, got %v", err)
	}
	if re.Start != 18 || re.End != 16 {
		t.Errorf("unexpected bounds %d-%d", re.Start, re.End)
	}
}
