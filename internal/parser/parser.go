// Package parser turns uploaded lead sheets (CSV or XLSX) into a uniform
// header-plus-rows table. Delimiters are sniffed, not assumed.
package parser

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Table is the parsed form of an uploaded file. Rows may be ragged; short
// rows are padded against Headers when leads are built from them.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Preview returns up to n data rows for UI display.
func (t *Table) Preview(n int) [][]string {
	if n <= 0 || n >= len(t.Rows) {
		return t.Rows
	}
	return t.Rows[:n]
}

// RowMaps converts rows into header-keyed maps. Cells beyond the header
// width are dropped; missing cells become empty strings.
func (t *Table) RowMaps() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		m := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				m[h] = row[i]
			} else {
				m[h] = ""
			}
		}
		out = append(out, m)
	}
	return out
}

var xlsxMagic = []byte{0x50, 0x4b, 0x03, 0x04} // zip container

// Parse detects the file type from its name and content and parses it.
// Supported: .csv, .txt (delimited text), .xlsx.
func Parse(filename string, data []byte) (*Table, error) {
	if len(data) == 0 {
		return nil, eris.New("parser: empty file")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xlsx":
		return parseXLSX(data)
	case ".csv", ".txt", "":
		// An .xlsx renamed to .csv still carries the zip magic.
		if bytes.HasPrefix(data, xlsxMagic) {
			return parseXLSX(data)
		}
		return parseCSV(data)
	case ".xls":
		return nil, eris.New("parser: legacy .xls is not supported, re-save as .xlsx or .csv")
	default:
		return nil, eris.Errorf("parser: unsupported file type %q", ext)
	}
}

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the candidate that appears most often in the first
// line. Commas win ties by candidate order.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best := ','
	bestCount := 0
	for _, d := range candidateDelimiters {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best = d
			bestCount = n
		}
	}
	return best
}

func parseCSV(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}) // UTF-8 BOM

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	t := &Table{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "parser: read csv row")
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		if t.Headers == nil {
			t.Headers = record
			continue
		}
		if isBlankRow(record) {
			continue
		}
		t.Rows = append(t.Rows, record)
	}

	if len(t.Headers) == 0 {
		return nil, eris.New("parser: file has no header row")
	}
	return t, nil
}

func parseXLSX(data []byte) (*Table, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "parser: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("parser: xlsx has no sheets")
	}

	t := &Table{}
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		if t.Headers == nil {
			t.Headers = cells
			continue
		}
		if isBlankRow(cells) {
			continue
		}
		t.Rows = append(t.Rows, cells)
	}

	if len(t.Headers) == 0 {
		return nil, eris.New("parser: xlsx sheet has no header row")
	}
	return t, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
