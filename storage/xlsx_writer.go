package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"airbnb-cleaner/models"
)

const defaultSheet = "Sheet1"

// XLSXWriter exports the cleaned table to an Excel workbook.
type XLSXWriter struct {
	path  string
	sheet string
	file  *excelize.File
}

// NewXLSXWriter prepares a workbook with one sheet named sheet.
func NewXLSXWriter(path, sheet string) (*XLSXWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("xlsx: create output dir: %w", err)
	}
	if sheet == "" {
		sheet = "listings"
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx: name sheet %q: %w", sheet, err)
	}
	return &XLSXWriter{path: path, sheet: sheet, file: f}, nil
}

// Export streams the header and rows into the sheet and saves the workbook.
func (x *XLSXWriter) Export(t *models.Table) error {
	sw, err := x.file.NewStreamWriter(x.sheet)
	if err != nil {
		return fmt.Errorf("xlsx: stream writer: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("xlsx: write header: %w", err)
	}

	for i, r := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx: cell name: %w", err)
		}
		values := make([]interface{}, len(t.Columns))
		for j, c := range t.Columns {
			values[j] = xlsxValue(r[c])
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("xlsx: write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx: flush: %w", err)
	}
	if err := x.file.SaveAs(x.path); err != nil {
		return fmt.Errorf("xlsx: save %q: %w", x.path, err)
	}
	return nil
}

func xlsxValue(v any) interface{} {
	if models.IsMissing(v) {
		return nil
	}
	switch x := v.(type) {
	case float64, float32, int, int32, int64, bool, string:
		return x
	}
	text, _ := models.Text(v)
	return text
}

// Close releases the workbook.
func (x *XLSXWriter) Close() error {
	return x.file.Close()
}
