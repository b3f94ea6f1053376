// Package sheet reads name lists from CSV and XLSX files and writes search
// and resolve results as CSV, XLSX, JSON, YAML, or GeoJSON.
package sheet

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

const utf8BOM = "\ufeff"

// NameOptions configures name-list parsing.
type NameOptions struct {
	// Column selects the name column by header (case-insensitive). When set
	// the first row is treated as a header.
	Column string
	// HasHeader skips the first row when Column is empty.
	HasHeader bool
	// SheetName picks an XLSX worksheet; the first sheet is used when empty.
	SheetName string
}

// ReadNames loads a name list from path, choosing the parser by extension.
// Blank names are skipped.
func ReadNames(path string, opts NameOptions) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadNamesXLSX(path, opts)
	case ".csv", ".txt", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "sheet: open names file")
		}
		defer f.Close()
		return ReadNamesCSV(f, opts)
	default:
		return nil, eris.Errorf("sheet: unsupported names file %q", path)
	}
}

// ReadNamesCSV reads names from a CSV stream. A leading UTF-8 BOM is ignored.
func ReadNamesCSV(r io.Reader, opts NameOptions) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "sheet: read csv row")
		}
		rows = append(rows, record)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], utf8BOM)
	}
	return pickNames(rows, opts)
}

// ReadNamesXLSX reads names from an XLSX workbook.
func ReadNamesXLSX(path string, opts NameOptions) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open xlsx")
	}

	sheet, err := getSheet(f, opts.SheetName)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rows = append(rows, rowToStrings(row))
	}
	return pickNames(rows, opts)
}

func pickNames(rows [][]string, opts NameOptions) ([]string, error) {
	col := 0
	start := 0
	if opts.Column != "" {
		if len(rows) == 0 {
			return nil, eris.Errorf("sheet: column %q not found in empty file", opts.Column)
		}
		col = -1
		for i, h := range rows[0] {
			if strings.EqualFold(strings.TrimSpace(h), opts.Column) {
				col = i
				break
			}
		}
		if col < 0 {
			return nil, eris.Errorf("sheet: column %q not found", opts.Column)
		}
		start = 1
	} else if opts.HasHeader {
		start = 1
	}

	var names []string
	for i := start; i < len(rows); i++ {
		if col >= len(rows[i]) {
			continue
		}
		if name := strings.TrimSpace(rows[i][col]); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("sheet: worksheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("sheet: workbook has no worksheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
