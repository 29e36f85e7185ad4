package engine

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"salesboard/internal/models"
)

const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SupportedExtension reports whether name has an extension Load understands.
func SupportedExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtCSV, ExtXLSX:
		return true
	}
	return false
}

// Load parses an uploaded file into a table, choosing the format from the
// extension of name. Headers are trimmed; blank headers become "Unnamed: N"
// and repeated headers get a ".N" suffix. Columns whose non-empty cells all
// parse as numbers become numeric, everything else stays text; empty cells
// are null. Dates are left to the page schema.
func Load(r io.Reader, name string) (*models.Table, error) {
	var (
		header []string
		body   [][]string
		err    error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtCSV:
		header, body, err = readCSV(r)
	case ExtXLSX:
		header, body, err = readXLSX(r)
	default:
		return nil, &ParseError{File: name, Reason: "unsupported file type, expected .csv or .xlsx"}
	}
	if err != nil {
		return nil, &ParseError{File: name, Reason: "malformed content", Err: err}
	}
	if len(header) == 0 {
		return nil, &ParseError{File: name, Reason: "file has no header row"}
	}

	columns := normalizeHeader(header)
	rows, err := buildRows(columns, body)
	if err != nil {
		return nil, &ParseError{File: name, Reason: "malformed content", Err: err}
	}
	t, err := models.NewTable(columns, rows)
	if err != nil {
		return nil, &ParseError{File: name, Reason: "malformed content", Err: err}
	}
	return t, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read upload")
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = sniffDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "read csv")
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

// sniffDelimiter picks ';' over ',' when the header line uses it more, as
// spreadsheets exported with a Brazilian locale do.
func sniffDelimiter(content []byte) rune {
	line := content
	if idx := bytes.IndexByte(content, '\n'); idx != -1 {
		line = content[:idx]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func readXLSX(r io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("workbook has no sheets")
	}
	// Raw values keep dates as serial numbers; the page schema converts them.
	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read sheet %q", sheets[0])
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}

func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		}
		seen[name] = 0
		columns[i] = name
	}
	return columns
}

func buildRows(columns []string, body [][]string) ([][]models.Value, error) {
	width := len(columns)
	numeric := make([]bool, width)
	for c := range numeric {
		numeric[c] = true
	}

	// Drop fully blank lines and reject lines wider than the header.
	cells := make([][]string, 0, len(body))
	for i, rec := range body {
		if isBlank(rec) {
			continue
		}
		if len(rec) > width {
			return nil, errors.Errorf("line %d has %d fields, header has %d", i+2, len(rec), width)
		}
		cells = append(cells, rec)
		for c, raw := range rec {
			if !numeric[c] {
				continue
			}
			s := strings.TrimSpace(raw)
			if s == "" {
				continue
			}
			if _, ok := plainNumber(s); !ok {
				numeric[c] = false
			}
		}
	}

	rows := make([][]models.Value, len(cells))
	for i, rec := range cells {
		row := make([]models.Value, width)
		for c := 0; c < width; c++ {
			if c >= len(rec) {
				continue
			}
			row[c] = inferCell(rec[c], numeric[c])
		}
		rows[i] = row
	}
	return rows, nil
}

func inferCell(raw string, numeric bool) models.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return models.NullValue()
	}
	if numeric {
		if f, ok := plainNumber(s); ok {
			return models.NumberValue(f)
		}
	}
	return models.StringValue(raw)
}

// plainNumber parses s as a finite float; "NaN" and "Inf" stay text.
func plainNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isBlank(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
