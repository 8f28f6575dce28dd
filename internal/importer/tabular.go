package importer

// tabular.go reads uploaded files into rows and maps the header. CSV and
// XLSX are supported; only the first sheet of a workbook is read. A file
// that cannot be parsed as tabular data at all is the single top-level
// failure mode of an import pass.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ErrUnreadableInput is wrapped by ReadTable errors so callers can tell
// "file is not tabular data" apart from per-row rejections.
var ErrUnreadableInput = errors.New("input is not readable tabular data")

// HeaderIndex maps lowercased column names to their position in a row.
type HeaderIndex map[string]int

// Table is a parsed tabular file: the header mapping plus the data rows
// that follow the header.
type Table struct {
	Header HeaderIndex
	Rows   [][]string
}

// ReadTable parses data as CSV or XLSX depending on the file extension.
// The first row is the header; it must contain all required columns.
func ReadTable(data []byte, fileName string) (*Table, error) {
	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		records, err = readXLSX(data)
	default:
		records, err = readCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableInput, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: file has no rows", ErrUnreadableInput)
	}

	header := MakeHeaderIndex(records[0])
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := header[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: header is missing required columns: %s",
			ErrUnreadableInput, strings.Join(missing, ", "))
	}

	return &Table{Header: header, Rows: records[1:]}, nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(sanitizeUTF8(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if key != "" {
			idx[key] = i
		}
	}
	return idx
}

// Cell returns the cleaned value of the named column in row, or "" when the
// column is absent or the row is short.
func (t *Table) Cell(row []string, column string) string {
	pos, ok := t.Header[strings.ToLower(column)]
	if !ok || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}

// HasColumn reports whether the header contains the named column.
func (t *Table) HasColumn(column string) bool {
	_, ok := t.Header[strings.ToLower(column)]
	return ok
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// whitespace, a UTF-8 BOM, Excel formula prefixes (="..."), and
// surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// IsEmptyRow reports whether every cell in the row is blank.
func IsEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement rune so
// the CSV reader never chokes on mixed-encoding exports.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\ufffd')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
