package storage

import (
	"context"

	"airbnb-cleaner/models"
)

// TableSource produces the raw listing table.
type TableSource interface {
	Load(ctx context.Context) (*models.Table, error)
}

// TableSink persists a table under a logical name, replacing any earlier
// version stored under that name.
type TableSink interface {
	Replace(ctx context.Context, name string, t *models.Table) error
	Close() error
}

// TableExporter writes the cleaned table to a file for offline analysis.
type TableExporter interface {
	Export(t *models.Table) error
	Close() error
}
