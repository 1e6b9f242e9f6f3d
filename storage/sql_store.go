package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"airbnb-cleaner/models"
	"airbnb-cleaner/utils"
)

const defaultBatchSize = 200

// StoreOptions tunes how SQLStore connects and writes.
type StoreOptions struct {
	BatchSize int
	Retry     *utils.RetryConfig
}

// SQLStore reads raw listings from, and writes cleaned tables to, a SQL database.
type SQLStore struct {
	db        *sql.DB
	dialect   Dialect
	batchSize int
	logger    *utils.Logger
}

// OpenSQLStore opens a connection and waits until the database answers a ping.
func OpenSQLStore(ctx context.Context, dialect Dialect, dsn string, opts StoreOptions, logger *utils.Logger) (*SQLStore, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", dialect.Driver, err)
	}

	retry := opts.Retry
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1, Logger: logger}
	}
	if err := retry.Do(ctx, dialect.Driver+" ping", func() error {
		return db.PingContext(ctx)
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	logger.Info("[store] Connected to %s", dialect.Driver)
	return &SQLStore{db: db, dialect: dialect, batchSize: batch, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Fetch runs query and loads every result row into a Table.
func (s *SQLStore) Fetch(ctx context.Context, query string) (*models.Table, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch: %w", s.dialect.Driver, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("%s: column types: %w", s.dialect.Driver, err)
	}

	cols := make([]string, len(types))
	numeric := make([]bool, len(types))
	for i, ct := range types {
		cols[i] = ct.Name()
		switch strings.ToUpper(ct.DatabaseTypeName()) {
		case "NUMERIC", "DECIMAL":
			numeric[i] = true
		}
	}

	t := models.NewTable(cols...)
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", s.dialect.Driver, err)
		}
		r := make(models.Row, len(cols))
		for i, c := range cols {
			r[c] = normaliseScanned(vals[i], numeric[i])
		}
		t.Rows = append(t.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate rows: %w", s.dialect.Driver, err)
	}

	s.logger.Info("[store] Fetched %d rows (%d columns)", t.Len(), len(cols))
	return t, nil
}

func normaliseScanned(v any, numeric bool) any {
	switch x := v.(type) {
	case []byte:
		if numeric {
			if f, err := strconv.ParseFloat(string(x), 64); err == nil {
				return f
			}
		}
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	}
	return v
}

// Replace drops any table stored under name and writes t in its place.
// The whole replacement runs in one transaction.
func (s *SQLStore) Replace(ctx context.Context, name string, t *models.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("%s: replace %q: table has no columns", s.dialect.Driver, name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.dialect.Driver, err)
	}
	defer func() { _ = tx.Rollback() }()

	table := s.dialect.Quote(name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("%s: drop %q: %w", s.dialect.Driver, name, err)
	}

	kinds := inferKinds(t)
	if _, err := tx.ExecContext(ctx, s.createStatement(table, t.Columns, kinds)); err != nil {
		return fmt.Errorf("%s: create %q: %w", s.dialect.Driver, name, err)
	}

	batch := s.batchSize
	if limit := s.dialect.MaxParams / len(t.Columns); limit < batch {
		batch = limit
	}
	if batch < 1 {
		batch = 1
	}

	for i := 0; i < t.Len(); i += batch {
		end := i + batch
		if end > t.Len() {
			end = t.Len()
		}
		if err := s.insertBatch(ctx, tx, table, t.Columns, kinds, t.Rows[i:end]); err != nil {
			return fmt.Errorf("%s: insert into %q: %w", s.dialect.Driver, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.dialect.Driver, err)
	}

	s.logger.Info("[store] Replaced table %s with %d rows", name, t.Len())
	return nil
}

func (s *SQLStore) createStatement(table string, cols []string, kinds []columnKind) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = s.dialect.Quote(c) + " " + s.sqlType(kinds[i])
	}
	return "CREATE TABLE " + table + " (" + strings.Join(defs, ", ") + ")"
}

func (s *SQLStore) sqlType(k columnKind) string {
	switch k {
	case kindInt:
		return s.dialect.IntType
	case kindFloat:
		return s.dialect.FloatType
	default:
		return s.dialect.TextType
	}
}

func (s *SQLStore) insertBatch(ctx context.Context, tx *sql.Tx, table string, cols []string, kinds []columnKind, batch []models.Row) error {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = s.dialect.Quote(c)
	}

	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*len(cols))
	n := 0
	for _, r := range batch {
		marks := make([]string, len(cols))
		for i, c := range cols {
			n++
			marks[i] = s.dialect.Placeholder(n)
			valueArgs = append(valueArgs, bindValue(r[c], kinds[i]))
		}
		valueStrings = append(valueStrings, "("+strings.Join(marks, ",")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(quoted, ","), strings.Join(valueStrings, ","))
	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

type columnKind int

const (
	kindText columnKind = iota
	kindInt
	kindFloat
)

// inferKinds picks a storage type per column from the Go types it holds.
// Columns with no values at all are stored as text.
func inferKinds(t *models.Table) []columnKind {
	kinds := make([]columnKind, len(t.Columns))
	for i, c := range t.Columns {
		seen, ints, floats := false, true, true
		for _, r := range t.Rows {
			v := r[c]
			if models.IsMissing(v) {
				continue
			}
			seen = true
			switch v.(type) {
			case int, int32, int64:
			case float32, float64:
				ints = false
			default:
				ints, floats = false, false
			}
			if !floats {
				break
			}
		}
		switch {
		case !seen || !floats:
			kinds[i] = kindText
		case ints:
			kinds[i] = kindInt
		default:
			kinds[i] = kindFloat
		}
	}
	return kinds
}

func bindValue(v any, kind columnKind) any {
	if models.IsMissing(v) {
		return nil
	}
	switch kind {
	case kindInt:
		switch x := v.(type) {
		case int:
			return int64(x)
		case int32:
			return int64(x)
		case int64:
			return x
		}
	case kindFloat:
		f, _ := models.Float(v)
		return f
	}
	text, _ := models.Text(v)
	return text
}

// QuerySource adapts a SQLStore and a selection query to a TableSource.
type QuerySource struct {
	Store *SQLStore
	Query string
}

// Load runs the configured query.
func (q QuerySource) Load(ctx context.Context) (*models.Table, error) {
	return q.Store.Fetch(ctx, q.Query)
}
