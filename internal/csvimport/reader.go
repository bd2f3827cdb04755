// Package csvimport turns uploaded spreadsheets into Location records.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidateDelimiters are tried in this order; ties keep the earlier one.
var candidateDelimiters = []rune{';', ',', '\t', '|'}

// ReadOptions controls how a file is parsed.
type ReadOptions struct {
	// Delimiter is the field separator. Zero means detect it from the header line.
	Delimiter rune
	// MaxRows caps the number of data rows read. Zero means no cap.
	MaxRows int
}

// Row is one data row. Number counts data rows starting at 1.
type Row struct {
	Number int
	Values []string
	// Err is set when the row could not be used, e.g. a wrong column count.
	Err error
}

// Table is a parsed file.
type Table struct {
	Header    []string
	Rows      []Row
	Delimiter rune
	// Truncated is set when the file had more data rows than MaxRows.
	Truncated bool
}

// ErrNoHeader is returned for files without a header row.
var ErrNoHeader = errors.New("file has no header row")

// DetectDelimiter picks the candidate delimiter occurring most often on the
// first line, ignoring quoted sections. It falls back to ';'.
func DetectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		line = data[:i]
	}

	counts := make(map[rune]int, len(candidateDelimiters))
	quoted := false
	for _, r := range string(line) {
		if r == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[r]++
		}
	}

	best, bestCount := ';', 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

// Read parses r. Rows whose column count differs from the header are returned
// with Err set instead of failing the whole file.
func Read(r io.Reader, opts ReadOptions) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	delim := opts.Delimiter
	if delim == 0 {
		delim = DetectDelimiter(data)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	cr.FieldsPerRecord = len(header)

	table := &Table{Header: header, Delimiter: delim}
	for n := 1; ; n++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if opts.MaxRows > 0 && len(table.Rows) >= opts.MaxRows {
			table.Truncated = true
			break
		}
		if err != nil {
			if !errors.Is(err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("failed to parse row %d: %w", n, err)
			}
			table.Rows = append(table.Rows, Row{
				Number: n,
				Values: record,
				Err:    fmt.Errorf("expected %d columns, got %d", len(header), len(record)),
			})
			continue
		}
		table.Rows = append(table.Rows, Row{Number: n, Values: record})
	}
	return table, nil
}

// Value returns the trimmed cell at column i, or "" when the row is short.
func (r Row) Value(i int) string {
	if i < 0 || i >= len(r.Values) {
		return ""
	}
	return strings.TrimSpace(r.Values[i])
}
