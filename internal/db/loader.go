package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tordrt/json2relcsv/internal/graph"
	"github.com/tordrt/json2relcsv/internal/schema"
)

// ErrUnsupportedURL is returned by Open for an unknown database URL scheme
var ErrUnsupportedURL = errors.New("unsupported database URL")

// LoadStats summarizes a completed load
type LoadStats struct {
	Tables int
	Rows   int64
}

// Loader writes a finished model into a database
type Loader interface {
	// Load creates every table of the model and inserts all rows in one
	// transaction, then checks the row counts the database reports.
	Load(ctx context.Context, s *schema.Schema) (*LoadStats, error)
	Close() error
}

// SQLLoader loads a model through database/sql
type SQLLoader struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewSQLLoader creates a loader for an open database handle
func NewSQLLoader(db *sql.DB, dialect Dialect, logger *slog.Logger) *SQLLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLLoader{db: db, dialect: dialect, logger: logger}
}

// Close closes the database handle
func (l *SQLLoader) Close() error {
	return l.db.Close()
}

// Load implements Loader
func (l *SQLLoader) Load(ctx context.Context, s *schema.Schema) (stats *LoadStats, err error) {
	tables, err := loadOrder(s)
	if err != nil {
		return nil, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stats = &LoadStats{}
	for _, t := range tables {
		if err := l.createTable(ctx, tx, t); err != nil {
			return nil, err
		}
	}

	for _, t := range tables {
		n, err := l.insertRows(ctx, tx, t)
		if err != nil {
			return nil, err
		}
		stats.Tables++
		stats.Rows += n
		l.logger.Debug("table loaded", "dialect", l.dialect.Name, "table", t.Name, "rows", n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	err = verifyCounts(ctx, tables, l.dialect, func(ctx context.Context, query string) (int64, error) {
		var n int64
		err := l.db.QueryRowContext(ctx, query).Scan(&n)
		return n, err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (l *SQLLoader) createTable(ctx context.Context, tx *sql.Tx, t *schema.Table) error {
	if _, err := tx.ExecContext(ctx, l.dialect.CreateTable(t)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.Name, err)
	}
	for _, stmt := range l.dialect.CreateIndexes(t) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", t.Name, err)
		}
	}
	return nil
}

func (l *SQLLoader) insertRows(ctx context.Context, tx *sql.Tx, t *schema.Table) (int64, error) {
	if len(t.Rows) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, l.dialect.Insert(t))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert for %s: %w", t.Name, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range t.Rows {
		args, err := RowArgs(t, row)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("failed to insert row %d into %s: %w", row.ID, t.Name, err)
		}
	}
	return int64(len(t.Rows)), nil
}

// loadOrder returns the tables of s with every parent before its children.
func loadOrder(s *schema.Schema) ([]*schema.Table, error) {
	topo := graph.TopoSortAll(graph.Build(s, nil))
	if err := graph.ValidateCycles(topo); err != nil {
		return nil, err
	}
	tables := make([]*schema.Table, 0, len(topo.Order))
	for _, name := range topo.Order {
		tables = append(tables, s.Table(name))
	}
	return tables, nil
}
