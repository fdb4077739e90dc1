// Package database writes synthesized tables into a relational database and
// reads them back for the table browser.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/datasynth/api/internal/config"
	"github.com/datasynth/api/internal/errs"
	"github.com/datasynth/api/internal/model"
)

// TablePrefix marks tables owned by the generator. Only these are browsable.
const TablePrefix = "synthetic_"

const (
	maxRowsPerStatement = 1000
	maxPreviewRows      = 1000
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Store is a relational sink backed by database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

// Column describes one column of an existing table.
type Column struct {
	Name      string  `json:"name"`
	DataType  string  `json:"data_type"`
	MaxLength *int64  `json:"max_length"`
	Nullable  bool    `json:"nullable"`
	Default   *string `json:"default"`
}

// Open connects using the configured driver and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	d, ok := dialects[strings.ToLower(cfg.Driver)]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required for driver %q", d.name)
	}

	db, err := sql.Open(d.sqlDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, dialect: d, logger: logger.Named("database")}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.dialect.name
}

// ValidateTableName accepts only generator-owned table names.
func ValidateTableName(name string) error {
	if !strings.HasPrefix(name, TablePrefix) || !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", errs.ErrInvalidTableName, name)
	}
	return nil
}

// WriteTable creates table if needed and appends records in one transaction.
func (s *Store) WriteTable(ctx context.Context, table string, schema *model.TableSchema, records []model.Record) (int64, error) {
	if err := ValidateTableName(table); err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable(table, schema)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", table, err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	columns := columnNames(schema)
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = coerceRow(schema, rec)
	}

	if s.dialect.copyFrom {
		return s.copyRows(ctx, table, columns, rows)
	}
	return s.insertRows(ctx, table, columns, rows)
}

func (s *Store) copyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	var n int64
	err = conn.Raw(func(driverConn any) error {
		pgConn := driverConn.(*stdlib.Conn).Conn()
		var copyErr error
		n, copyErr = pgConn.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
		return copyErr
	})
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	s.logger.Debug("copied rows", zap.String("table", table), zap.Int64("rows", n))
	return n, nil
}

func (s *Store) insertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	perStmt := s.dialect.maxParams / len(columns)
	if perStmt > maxRowsPerStatement {
		perStmt = maxRowsPerStatement
	}
	if perStmt < 1 {
		perStmt = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var written int64
	for start := 0; start < len(rows); start += perStmt {
		end := start + perStmt
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		args := make([]any, 0, len(batch)*len(columns))
		for _, row := range batch {
			args = append(args, row...)
		}
		res, err := tx.ExecContext(ctx, s.dialect.insert(table, columns, len(batch)), args...)
		if err != nil {
			return 0, fmt.Errorf("insert into %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			written += n
		} else {
			written += int64(len(batch))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", table, err)
	}
	s.logger.Debug("inserted rows", zap.String("table", table), zap.Int64("rows", written))
	return written, nil
}

// ListTables returns generator-owned tables in name order.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.listTables, TablePrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		// LIKE treats _ as a wildcard
		if strings.HasPrefix(name, TablePrefix) {
			tables = append(tables, name)
		}
	}
	return tables, rows.Err()
}

// TableRows returns up to limit rows of table, each as a column→value map.
func (s *Store) TableRows(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxPreviewRows {
		limit = maxPreviewRows
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", s.dialect.quote(table), limit))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// TableColumns describes the columns of table. A table with no columns does not exist.
func (s *Store) TableColumns(ctx context.Context, table string) ([]Column, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.columns, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	cols := []Column{}
	for rows.Next() {
		var (
			c        Column
			maxLen   sql.NullInt64
			nullable string
			def      sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.DataType, &maxLen, &nullable, &def); err != nil {
			return nil, err
		}
		if maxLen.Valid {
			c.MaxLength = &maxLen.Int64
		}
		if def.Valid {
			c.Default = &def.String
		}
		c.Nullable = strings.EqualFold(nullable, "YES")
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s: %w", table, errs.ErrNotFound)
	}
	return cols, nil
}

func columnNames(schema *model.TableSchema) []string {
	names := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		names[i] = f.Name
	}
	return names
}

// coerceRow converts generated values into driver-friendly column values.
func coerceRow(schema *model.TableSchema, rec model.Record) []any {
	row := make([]any, len(schema.Fields))
	for i, f := range schema.Fields {
		row[i] = coerceValue(f, rec.Get(f.Name))
	}
	return row
}

func coerceValue(f model.FieldSpec, v any) any {
	if v == nil {
		return nil
	}
	if f.IsRepeated() || f.Type == model.FieldTypeRecord {
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	}

	switch f.Type {
	case model.FieldTypeDate:
		if s, ok := v.(string); ok {
			if t, err := time.Parse("2006-01-02", s); err == nil {
				return t
			}
		}
	case model.FieldTypeTimestamp:
		switch t := v.(type) {
		case int64:
			return time.Unix(t, 0).UTC()
		case string:
			if parsed, err := time.Parse("2006-01-02T15:04:05", t); err == nil {
				return parsed.UTC()
			}
		}
	}
	return v
}
