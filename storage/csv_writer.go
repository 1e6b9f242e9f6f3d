package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"airbnb-cleaner/models"
)

// CSVWriter writes a cleaned table to a CSV file. Missing cells are written
// as empty strings.
type CSVWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	return &CSVWriter{path: path, file: f, writer: csv.NewWriter(f)}, nil
}

// Export writes the header row followed by every table row.
func (c *CSVWriter) Export(t *models.Table) error {
	if err := c.writer.Write(t.Columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, col := range t.Columns {
			record[i], _ = models.Text(r[col])
		}
		if err := c.writer.Write(record); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("csv: flush %q: %w", c.path, err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
