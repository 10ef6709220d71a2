// Package sheet reads xlsx workbooks and resolves their structure: which
// sheets carry questions, which columns hold them, and where document-level
// context lives. It feeds the classification core and collects its output
// into extraction results.
package sheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"sheetfill/internal/model"
)

const (
	maxHeaderCols = 20
	maxSampleRows = 20
	maxSampleCols = 25
	sampleCellCap = 200
)

// Workbook wraps an open xlsx file with the read operations the analysis
// and extraction layers need.
type Workbook struct {
	f    *excelize.File
	path string
}

// Open opens the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Workbook{f: f, path: path}, nil
}

// OpenReader opens a workbook from an in-memory stream. name is recorded
// as the workbook path for reporting.
func OpenReader(r io.Reader, name string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Workbook{f: f, path: name}, nil
}

func (w *Workbook) Close() error { return w.f.Close() }

// Path returns the path or name the workbook was opened with.
func (w *Workbook) Path() string { return w.path }

// File exposes the underlying excelize file for writing filled copies.
func (w *Workbook) File() *excelize.File { return w.f }

// SheetNames lists sheets in workbook order.
func (w *Workbook) SheetNames() []string { return w.f.GetSheetList() }

// Dimensions returns the used row and column counts of a sheet.
func (w *Workbook) Dimensions(sheetName string) (rows, cols int, err error) {
	all, err := w.f.GetRows(sheetName)
	if err != nil {
		return 0, 0, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	for _, row := range all {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return len(all), cols, nil
}

// Headers returns the first-row cells of a sheet with their column letters,
// capped at maxHeaderCols.
func (w *Workbook) Headers(sheetName string) ([]model.Header, error) {
	all, err := w.f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(all) == 0 {
		return nil, nil
	}
	var headers []model.Header
	for i, v := range all[0] {
		if i >= maxHeaderCols {
			break
		}
		if strings.TrimSpace(v) == "" {
			continue
		}
		letter, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		headers = append(headers, model.Header{Column: letter, Value: strings.TrimSpace(v)})
	}
	return headers, nil
}

// Samples returns up to maxSampleRows data rows (below the header row),
// each capped at maxSampleCols cells and sampleCellCap characters per cell.
func (w *Workbook) Samples(sheetName string) ([][]string, error) {
	all, err := w.f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(all) <= 1 {
		return nil, nil
	}
	var samples [][]string
	for _, row := range all[1:] {
		if len(samples) >= maxSampleRows {
			break
		}
		if rowEmpty(row) {
			continue
		}
		sample := make([]string, 0, min(len(row), maxSampleCols))
		for i, v := range row {
			if i >= maxSampleCols {
				break
			}
			if len(v) > sampleCellCap {
				v = v[:sampleCellCap]
			}
			sample = append(sample, v)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// CellValue reads one cell by column letter and 1-based row.
func (w *Workbook) CellValue(sheetName, column string, row int) (string, error) {
	v, err := w.f.GetCellValue(sheetName, fmt.Sprintf("%s%d", column, row))
	if err != nil {
		return "", fmt.Errorf("read cell %s%d in %q: %w", column, row, sheetName, err)
	}
	return v, nil
}

// SetCellValue writes one cell by column letter and 1-based row.
func (w *Workbook) SetCellValue(sheetName, column string, row int, value string) error {
	if err := w.f.SetCellValue(sheetName, fmt.Sprintf("%s%d", column, row), value); err != nil {
		return fmt.Errorf("write cell %s%d in %q: %w", column, row, sheetName, err)
	}
	return nil
}

// CollectSheetData gathers the full content of a sheet for context
// analysis: headers, samples, all non-empty text, and row sections.
func (w *Workbook) CollectSheetData(sheetName string) (*model.SheetData, error) {
	all, err := w.f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	headers, err := w.Headers(sheetName)
	if err != nil {
		return nil, err
	}
	samples, err := w.Samples(sheetName)
	if err != nil {
		return nil, err
	}

	data := &model.SheetData{
		SheetName: sheetName,
		Headers:   headers,
		Samples:   samples,
		TotalRows: len(all),
	}
	for rowIdx, row := range all {
		if len(row) > data.TotalColumns {
			data.TotalColumns = len(row)
		}
		var content []string
		for _, v := range row {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			data.TextContent = append(data.TextContent, v)
			content = append(content, v)
		}
		if len(content) > 0 {
			data.Sections = append(data.Sections, model.SheetSection{Row: rowIdx + 1, Content: content})
		}
	}
	return data, nil
}

// SheetInfos builds the per-sheet summaries submitted for sheet-type
// analysis.
func (w *Workbook) SheetInfos() ([]model.SheetInfo, error) {
	var infos []model.SheetInfo
	for _, name := range w.SheetNames() {
		rows, cols, err := w.Dimensions(name)
		if err != nil {
			return nil, err
		}
		headers, err := w.Headers(name)
		if err != nil {
			return nil, err
		}
		samples, err := w.Samples(name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, model.SheetInfo{
			Name:    name,
			Rows:    rows,
			Columns: cols,
			Headers: headers,
			Samples: samples,
		})
	}
	return infos, nil
}

func rowEmpty(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
