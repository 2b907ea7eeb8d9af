package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with ID",
			err:      &NotFoundError{Resource: "verse", ID: "John.3.16"},
			wantMsg:  "verse not found: John.3.16",
			wantBase: ErrNotFound,
		},
		{
			name:     "without ID",
			err:      &NotFoundError{Resource: "book"},
			wantMsg:  "book not found",
			wantBase: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("disk error")
		err := &NotFoundError{Resource: "file", ID: "kjv.db", Err: underlyingErr}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestValidationError(t *testing.T) {
	err := NewValidation("q", "must not be empty")
	if got := err.Error(); got != "validation failed for q: must not be empty" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("expected ValidationError to unwrap to ErrInvalidInput")
	}

	noField := &ValidationError{Message: "invalid format"}
	if got := noField.Error(); got != "validation failed: invalid format" {
		t.Errorf("Error() = %q", got)
	}
}

func TestRangeError(t *testing.T) {
	err := NewRange(10, 3)
	if got := err.Error(); got != "malformed verse range: 10-3 ends before it starts" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("expected RangeError to unwrap to ErrInvalidInput")
	}

	var re *RangeError
	wrapped := Wrap(err, "parse John.3.10-3")
	if !As(wrapped, &re) {
		t.Fatal("expected As to find RangeError through Wrap")
	}
	if re.Start != 10 || re.End != 3 {
		t.Errorf("unexpected bounds %d-%d", re.Start, re.End)
	}
}

func TestStoreError(t *testing.T) {
	cause := errors.New("no such table: bible")
	err := NewStore("sqlite", "lookup", Join(ErrUnavailable, cause))

	if got := err.Error(); got != "sqlite store lookup failed: unavailable\nno such table: bible" {
		t.Errorf("Error() = %q", got)
	}
	if !Is(err, ErrUnavailable) {
		t.Error("expected StoreError to match ErrUnavailable")
	}
	if !Is(err, cause) {
		t.Error("expected StoreError to match its cause")
	}

	noBackend := &StoreError{Op: "search", Err: cause}
	if got := noBackend.Error(); got != "store search failed: no such table: bible" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIOError(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewIO("open", "/data/kjv.jsonl", cause)
	if got := err.Error(); got != "failed to open /data/kjv.jsonl: permission denied" {
		t.Errorf("Error() = %q", got)
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() should return cause")
	}

	noPath := &IOError{Operation: "read", Err: cause}
	if got := noPath.Error(); got != "failed to read: permission denied" {
		t.Errorf("Error() = %q", got)
	}
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ParseError
		wantMsg string
	}{
		{
			name:    "with path",
			err:     NewParse("JSONL", "kjv.jsonl", "line 3: unexpected EOF"),
			wantMsg: "failed to parse JSONL at kjv.jsonl: line 3: unexpected EOF",
		},
		{
			name:    "without path",
			err:     NewParse("OSIS reference", "", "unexpected token"),
			wantMsg: "failed to parse OSIS reference: unexpected token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Error("expected ParseError to unwrap to ErrInvalidInput")
			}
		})
	}
}

func TestUnsupportedError(t *testing.T) {
	err := NewUnsupported("store backend", "postgres")
	if got := err.Error(); got != "unsupported store backend: postgres" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Error("expected UnsupportedError to unwrap to ErrUnsupported")
	}

	bare := &UnsupportedError{Feature: "format"}
	if got := bare.Error(); got != "unsupported format" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}

	base := errors.New("base")
	wrapped := Wrapf(base, "lookup %s", "John 3:16")
	if got := wrapped.Error(); got != "lookup John 3:16: base" {
		t.Errorf("Wrapf() = %q", got)
	}
	if !Is(wrapped, base) {
		t.Error("wrapped error should match base")
	}
}
