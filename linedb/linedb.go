// Package linedb loads the line text and metadata tables a compiled
// program's RUN_LINE/ADD_OPTION instructions refer to by id, the CSV
// "string table" described in spec.md §3's line database section.
package linedb

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/text/language"
)

// LineData is one row of the line table: the text a line id resolves to,
// plus the source-file provenance the original compiler records.
type LineData struct {
	ID         string
	Text       string
	File       string
	Node       string
	LineNumber int

	// Locale is the BCP-47 tag this row's text is written in, or the zero
	// Tag if the table carries no locale column (spec.md §4.6 supplement:
	// a compiled program may ship one string table per locale, or a single
	// table with a locale column).
	Locale language.Tag
}

// Database maps line ids to their text/metadata and to their tag sets
// (loaded separately from a metadata CSV, same id-keyed join the original
// line database performs).
type Database struct {
	lines map[string]LineData
	tags  map[string]map[string]bool
}

// New returns an empty Database.
func New() *Database {
	return &Database{
		lines: map[string]LineData{},
		tags:  map[string]map[string]bool{},
	}
}

// Line looks up a line by id.
func (d *Database) Line(id string) (LineData, bool) {
	l, ok := d.lines[id]
	return l, ok
}

// Tags reports the tag set associated with a line id, or nil if it has
// none.
func (d *Database) Tags(id string) map[string]bool { return d.tags[id] }

// HasTag reports whether line id carries tag.
func (d *Database) HasTag(id, tag string) bool { return d.tags[id][tag] }

// Count returns the number of loaded lines.
func (d *Database) Count() int { return len(d.lines) }

func readCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // metadata rows carry a variable number of tag columns
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	return header, rows, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// LoadLines reads the compiler-generated line CSV (columns: id, text, file,
// node, lineNumber, and an optional locale column) and merges its rows into
// d, keyed by id.
func (d *Database) LoadLines(r io.Reader) error {
	header, rows, err := readCSV(r)
	if err != nil {
		return err
	}
	idCol := columnIndex(header, "id")
	textCol := columnIndex(header, "text")
	fileCol := columnIndex(header, "file")
	nodeCol := columnIndex(header, "node")
	lineNumberCol := columnIndex(header, "lineNumber")
	localeCol := columnIndex(header, "locale")
	if idCol < 0 || textCol < 0 {
		return fmt.Errorf("linedb: line CSV missing required id/text columns")
	}

	for _, row := range rows {
		id := field(row, idCol)
		var lineNumber int
		if lineNumberCol >= 0 {
			lineNumber, _ = strconv.Atoi(field(row, lineNumberCol))
		}
		var locale language.Tag
		if localeCol >= 0 && field(row, localeCol) != "" {
			tag, err := language.Parse(field(row, localeCol))
			if err != nil {
				return fmt.Errorf("line %q: parse locale: %w", id, err)
			}
			locale = tag
		}
		d.lines[id] = LineData{
			ID:         id,
			Text:       field(row, textCol),
			File:       field(row, fileCol),
			Node:       field(row, nodeCol),
			LineNumber: lineNumber,
			Locale:     locale,
		}
	}
	return nil
}

// yarnTagsColumnIndex is where the metadata CSV's variable-width tag
// columns begin (id, node, lineNumber, then tags...), matching the original
// line database's fixed offset.
const yarnTagsColumnIndex = 3

// LoadMetadata reads the compiler-generated metadata CSV (id, node,
// lineNumber, then a variable number of tag columns) and merges tags into
// d, keyed by id.
func (d *Database) LoadMetadata(r io.Reader) error {
	header, rows, err := readCSV(r)
	if err != nil {
		return err
	}
	idCol := columnIndex(header, "id")
	if idCol < 0 {
		return fmt.Errorf("linedb: metadata CSV missing required id column")
	}

	for _, row := range rows {
		id := field(row, idCol)
		set := d.tags[id]
		if set == nil {
			set = map[string]bool{}
			d.tags[id] = set
		}
		for i := yarnTagsColumnIndex; i < len(row); i++ {
			if row[i] != "" {
				set[row[i]] = true
			}
		}
	}
	return nil
}

// Load reads the line CSV at linesPath and, if metaPath is non-empty, the
// metadata CSV at metaPath, returning a populated Database.
func Load(linesPath, metaPath string) (*Database, error) {
	db := New()

	f, err := os.Open(linesPath)
	if err != nil {
		return nil, fmt.Errorf("open lines CSV: %w", err)
	}
	defer f.Close()
	if err := db.LoadLines(f); err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}

	if metaPath == "" {
		return db, nil
	}
	m, err := os.Open(metaPath)
	if err != nil {
		return nil, fmt.Errorf("open metadata CSV: %w", err)
	}
	defer m.Close()
	if err := db.LoadMetadata(m); err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	return db, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
