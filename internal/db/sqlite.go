package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// SQLiteClient manages the connection to SQLite
type SQLiteClient struct {
	*SQLLoader
	db *sql.DB
}

// NewSQLiteClient opens the SQLite database at path. Builds with cgo use
// mattn/go-sqlite3, others the pure Go modernc.org/sqlite driver.
func NewSQLiteClient(ctx context.Context, path string, logger *slog.Logger) (*SQLiteClient, error) {
	return openSQLite(ctx, sqliteDriver, path, logger)
}

// openSQLite opens a SQLite file through the named database/sql driver and
// enables foreign key enforcement.
func openSQLite(ctx context.Context, driver, path string, logger *slog.Logger) (*SQLiteClient, error) {
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// A single connection keeps the pragma in effect for every statement.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLiteClient{SQLLoader: NewSQLLoader(db, SQLite, logger), db: db}, nil
}

// GetDB returns the underlying database connection
func (c *SQLiteClient) GetDB() *sql.DB {
	return c.db
}
