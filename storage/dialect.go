package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect struct {
	Driver    string
	IntType   string
	FloatType string
	TextType  string
	// MaxParams bounds the bind parameters of a single statement.
	MaxParams int
	numbered  bool
}

var (
	Postgres = Dialect{
		Driver:    "postgres",
		IntType:   "BIGINT",
		FloatType: "DOUBLE PRECISION",
		TextType:  "TEXT",
		MaxParams: 65535,
		numbered:  true,
	}
	SQLite = Dialect{
		Driver:    "sqlite",
		IntType:   "INTEGER",
		FloatType: "REAL",
		TextType:  "TEXT",
		MaxParams: 32766,
	}
)

// DialectFor looks up a dialect by its DB_DRIVER name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
}

// Placeholder returns the bind marker for the n-th (1-based) parameter.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Quote quotes an identifier. Both backends accept standard double quoting.
func (d Dialect) Quote(name string) string {
	return pq.QuoteIdentifier(name)
}
