package memstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/BibleEcho/core/canon"
	"github.com/FocuswithJustin/BibleEcho/core/errors"
	"github.com/FocuswithJustin/BibleEcho/core/reference"
	"github.com/FocuswithJustin/BibleEcho/core/verse"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 1 << 20

var (
	// OSIS documents usually declare a default namespace, so match on
	// local names.
	osisVerseExpr = xpath.MustCompile(`//*[local-name()='verse'][@osisID]`)
	osisWorkExpr  = xpath.MustCompile(`//*[local-name()='osisText'][@osisIDWork]`)
)

// LoadFile reads verses from path. ".jsonl" and ".json" files hold one record
// per line; ".xml" and ".osis" files are OSIS documents. A trailing ".xz" is
// decompressed transparently.
func LoadFile(path, translation string) ([]verse.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, errors.NewIO("decompress", path, err)
		}
		r = xr
		name = strings.TrimSuffix(name, ".xz")
	}

	var records []verse.Record
	switch filepath.Ext(name) {
	case ".jsonl", ".json":
		records, err = LoadJSONL(r, translation)
	case ".xml", ".osis":
		records, err = LoadOSIS(r, translation)
	default:
		return nil, errors.NewUnsupported("verse file", filepath.Base(path))
	}
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}
		return nil, err
	}
	return records, nil
}

// LoadJSONL decodes one verse record per line. Blank lines are skipped. Book
// names may be any alias and are stored in canonical form.
func LoadJSONL(r io.Reader, translation string) ([]verse.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var records []verse.Record
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec verse.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, parseErr("JSONL", fmt.Sprintf("line %d: %v", line, err), err)
		}
		if err := canonicalize(&rec, translation); err != nil {
			return nil, parseErr("JSONL", fmt.Sprintf("line %d: %v", line, err), err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIO("read", "", err)
	}
	return records, nil
}

// LoadOSIS extracts <verse osisID="Book.C.V">text</verse> elements from an
// OSIS document. The translation falls back to the document's osisIDWork when
// translation is empty.
func LoadOSIS(r io.Reader, translation string) ([]verse.Record, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, parseErr("OSIS", err.Error(), err)
	}

	if translation == "" {
		if work := xmlquery.QuerySelector(doc, osisWorkExpr); work != nil {
			translation = work.SelectAttr("osisIDWork")
		}
	}

	var records []verse.Record
	for _, n := range xmlquery.QuerySelectorAll(doc, osisVerseExpr) {
		id := strings.Fields(n.SelectAttr("osisID"))
		if len(id) == 0 {
			continue
		}

		c, err := reference.ParseOSIS(id[0])
		if err != nil {
			return nil, parseErr("OSIS", fmt.Sprintf("verse %q: %v", id[0], err), err)
		}
		if !c.HasVerse() {
			return nil, parseErr("OSIS", fmt.Sprintf("verse %q has no verse number", id[0]), nil)
		}

		rec := verse.Record{
			Translation: translation,
			Book:        c.Book.String(),
			Chapter:     c.Chapter,
			Verse:       c.VerseStart,
			Text:        strings.Join(strings.Fields(n.InnerText()), " "),
		}
		if rec.Translation == "" {
			rec.Translation = verse.DefaultTranslation
		}
		records = append(records, rec)
	}
	return records, nil
}

func canonicalize(rec *verse.Record, translation string) error {
	book, ok := canon.ResolveAlias(rec.Book)
	if !ok {
		return errors.NewNotFound("book", rec.Book)
	}
	rec.Book = book.String()

	if rec.Chapter < 1 || rec.Verse < 1 {
		return errors.NewValidation("reference", fmt.Sprintf("%s %d:%d is out of range", rec.Book, rec.Chapter, rec.Verse))
	}
	if rec.Translation == "" {
		rec.Translation = translation
	}
	if rec.Translation == "" {
		rec.Translation = verse.DefaultTranslation
	}
	return nil
}

func parseErr(format, msg string, cause error) *errors.ParseError {
	pe := errors.NewParse(format, "", msg)
	if cause != nil {
		pe.Err = errors.Join(errors.ErrInvalidInput, cause)
	}
	return pe
}
