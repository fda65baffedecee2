package imports

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sanctus-app/sanctus/internal/shared"
)

// MaxRows bounds a single upload.
const MaxRows = 5000

// Row is one data line of an uploaded sheet. Number is the 1-based line in
// the file, so the header is line 1 and the first data row is line 2.
type Row struct {
	Number int
	Cells  []string
}

// Cell returns the trimmed, NFC-normalised value at i or "".
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// Blank reports whether every cell is empty.
func (r Row) Blank() bool {
	for _, c := range r.Cells {
		if c != "" {
			return false
		}
	}
	return true
}

// ReadRows decodes a .csv or .xlsx upload, dropping the header row and blank
// lines. Only the first worksheet of a workbook is read. Row numbers are file
// line numbers, so skipped lines still count.
func ReadRows(filename string, data []byte) ([]Row, error) {
	var (
		raw []Row
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		raw, err = readCSV(data)
	case ".xlsx":
		raw, err = readXLSX(data)
	default:
		return nil, shared.BadRequest("Unsupported file format. Use .csv or .xlsx")
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, shared.BadRequest("File is empty")
	}
	rows := make([]Row, 0, len(raw)-1)
	for _, row := range raw[1:] {
		row.Cells = cleanCells(row.Cells)
		if row.Blank() {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) > MaxRows {
		return nil, shared.BadRequest(fmt.Sprintf("Too many rows: %d (maximum %d)", len(rows), MaxRows))
	}
	return rows, nil
}

func readCSV(data []byte) ([]Row, error) {
	// Spreadsheet exports often carry a BOM or arrive as UTF-16.
	decoded := transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	var out []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, shared.BadRequest(fmt.Sprintf("CSV parse error: %v", err))
		}
		line, _ := reader.FieldPos(0)
		out = append(out, Row{Number: line, Cells: record})
	}
}

func readXLSX(data []byte) ([]Row, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, shared.BadRequest(fmt.Sprintf("XLSX parse error: %v", err))
	}
	defer book.Close()
	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	cells, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, shared.BadRequest(fmt.Sprintf("XLSX parse error: %v", err))
	}
	out := make([]Row, len(cells))
	for i, c := range cells {
		out[i] = Row{Number: i + 1, Cells: c}
	}
	return out, nil
}

func cleanCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = norm.NFC.String(strings.TrimSpace(c))
	}
	return out
}
