// Package decode turns uploaded back-office exports into a rectangular table
// of string cells plus a header row.
//
// Text exports arrive in a handful of encodings and with no declared field
// separator, so the decoder tries a fixed ordered list of encodings and picks
// the separator by counting candidate characters in the first line.
// Spreadsheet exports are delegated to the structured workbook reader.
package decode

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Decode failure kinds. Callers match with errors.Is.
var (
	// ErrUnreadableFile means no encoding/separator combination parsed.
	ErrUnreadableFile = errors.New("file could not be read with any supported encoding")

	// ErrEmptyFile means the file decoded but contains no data.
	ErrEmptyFile = errors.New("file is empty")
)

// Format selects the decode strategy for a file.
type Format string

const (
	FormatCSV  Format = "csv"  // tabular text, separator auto-detected
	FormatXLSX Format = "xlsx" // structured workbook
)

// ParseFormat maps a format selector to a Format. Returns false for unknown
// selectors.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "tabular-text", "txt":
		return FormatCSV, true
	case "xlsx", "spreadsheet", "xls":
		return FormatXLSX, true
	}
	return "", false
}

// FormatForFile guesses the format from a file name extension.
func FormatForFile(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Table is a decoded file: one header row plus zero or more data rows.
// Rows are not guaranteed to be as wide as the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// File reads and decodes path according to format.
func File(path string, format Format) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return Bytes(data, format)
}

// Bytes decodes an in-memory file according to format.
func Bytes(data []byte, format Format) (*Table, error) {
	if format == FormatXLSX {
		return decodeWorkbook(data)
	}
	return decodeText(data)
}

// utf8BOM is the byte order mark some exporters prepend to UTF-8 files.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// encoding is one candidate in the ordered decode list.
type encoding struct {
	name   string
	decode func([]byte) (string, error)
}

var encodings = []encoding{
	{"utf-8-sig", decodeUTF8BOM},
	{"utf-8", decodeUTF8},
	{"latin-1", decodeCharmap(charmap.ISO8859_1)},
	{"windows-1252", decodeCharmap(charmap.Windows1252)},
	{"iso-8859-1", decodeCharmap(charmap.ISO8859_1)},
}

func decodeUTF8BOM(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	return decodeUTF8(data)
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("invalid UTF-8 byte sequence")
	}
	return string(data), nil
}

func decodeCharmap(cm *charmap.Charmap) func([]byte) (string, error) {
	return func(data []byte) (string, error) {
		text, err := cm.NewDecoder().Bytes(data)
		if err != nil {
			return "", err
		}
		return string(text), nil
	}
}

// decodeText tries each candidate encoding in order. For each one it decodes
// the whole file, detects the separator on the first line and attempts a full
// parse; the first candidate that parses without error wins.
func decodeText(data []byte) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	var lastErr error
	for _, enc := range encodings {
		text, err := enc.decode(data)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", enc.name, err)
			continue
		}

		sep := DetectSeparator(firstLine(text))
		table, err := parseText(text, sep)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", enc.name, err)
			continue
		}
		return table, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, lastErr)
}

// DetectSeparator picks the field separator for a text export by counting
// occurrences of tab, comma and semicolon in the first line. Ties favor tab,
// then semicolon, then comma.
func DetectSeparator(line string) rune {
	tabs := strings.Count(line, "\t")
	commas := strings.Count(line, ",")
	semicolons := strings.Count(line, ";")

	if tabs >= commas && tabs >= semicolons {
		return '\t'
	}
	if semicolons >= commas {
		return ';'
	}
	return ','
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

func parseText(text string, sep rune) (*Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// decodeWorkbook reads the first sheet of a spreadsheet export.
func decodeWorkbook(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}
