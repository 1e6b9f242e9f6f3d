package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"airbnb-cleaner/models"
	"airbnb-cleaner/utils"
)

// CSVReader loads a raw listings export whose first row is the header.
// Empty cells become missing; everything else is kept as text and left to
// the cleaner to coerce.
type CSVReader struct {
	path   string
	logger *utils.Logger
}

// NewCSVReader returns a TableSource for the CSV file at path.
func NewCSVReader(path string, logger *utils.Logger) *CSVReader {
	return &CSVReader{path: path, logger: logger}
}

// Load reads the whole file into memory.
func (c *CSVReader) Load(ctx context.Context) (*models.Table, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", c.path, err)
	}
	defer f.Close()

	t, err := ReadCSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("csv: read %q: %w", c.path, err)
	}

	c.logger.Info("[csv] Loaded %d rows from %s", t.Len(), c.path)
	return t, nil
}

// ReadCSV parses CSV data from r into a Table.
func ReadCSV(ctx context.Context, r io.Reader) (*models.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return models.NewTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := models.NewTable(header...)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make(models.Row, len(header))
		for i, col := range header {
			if i >= len(rec) || rec[i] == "" {
				row[col] = nil
				continue
			}
			row[col] = rec[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
