package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"tabula-hq/formula/pkg/schema"
)

// SQLiteConfig configures a SQLite record source.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Table is the table records are read from.
	// Default: "records"
	Table string

	// IDColumn is the column holding the record id.
	// Default: "id"
	IDColumn string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteSource reads records from one table. Every row is a record; the id
// column becomes the record id and every other column a named field.
type SQLiteSource struct {
	db     *sql.DB
	config SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteSource opens an existing database.
func NewSQLiteSource(cfg *SQLiteConfig, logger *slog.Logger) (*SQLiteSource, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, newSourceError(BackendSQLite, "open", errors.New("db path cannot be empty"))
	}
	c := *cfg
	if c.Table == "" {
		c.Table = "records"
	}
	if c.IDColumn == "" {
		c.IDColumn = DefaultIDField
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Opening a missing path would create an empty database.
	if _, err := os.Stat(c.Path); err != nil {
		return nil, newSourceError(BackendSQLite, "open", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)", c.Path, c.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, newSourceError(BackendSQLite, "open", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, newSourceError(BackendSQLite, "open", err)
	}

	s := &SQLiteSource{
		db:     db,
		config: c,
		logger: logger.With("component", "records.sqlite"),
	}
	s.logger.Info("SQLite record source opened", "path", c.Path, "table", c.Table)
	return s, nil
}

// Load implements Source.
func (s *SQLiteSource) Load(ctx context.Context) ([]*schema.Record, error) {
	query := "SELECT * FROM " + quoteIdent(s.config.Table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, newSourceError(BackendSQLite, "query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, newSourceError(BackendSQLite, "query", err)
	}
	idIndex := -1
	for i, c := range cols {
		if c == s.config.IDColumn {
			idIndex = i
		}
	}
	if idIndex < 0 {
		return nil, newSourceError(BackendSQLite, "query",
			fmt.Errorf("table %s has no id column %q", s.config.Table, s.config.IDColumn))
	}

	var records []*schema.Record
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, newSourceError(BackendSQLite, "scan", err)
		}
		rec := &schema.Record{Fields: make(map[string]any, len(cols)-1)}
		for i, c := range cols {
			v := columnValue(values[i])
			if i == idIndex {
				rec.ID = idValue(v)
				continue
			}
			rec.Fields[c] = v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, newSourceError(BackendSQLite, "scan", err)
	}

	s.logger.Debug("records loaded", "table", s.config.Table, "count", len(records))
	return records, nil
}

// Close implements Source.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// columnValue converts a scanned SQLite value to a formula value.
func columnValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case int64:
		return float64(val)
	default:
		return val
	}
}

func idValue(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// quoteIdent quotes a table name for use in SQL.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
