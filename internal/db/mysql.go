package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLClient manages the connection to MySQL.
//
// MySQL commits DDL implicitly, so a failed load can leave created tables
// behind even though the inserted rows are rolled back.
type MySQLClient struct {
	*SQLLoader
	db *sql.DB
}

// NewMySQLClient creates a new MySQL client from a driver DSN
// (user:pass@tcp(host:3306)/dbname)
func NewMySQLClient(ctx context.Context, connString string, logger *slog.Logger) (*MySQLClient, error) {
	db, err := sql.Open("mysql", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLClient{SQLLoader: NewSQLLoader(db, MySQL, logger), db: db}, nil
}

// GetDB returns the underlying database connection
func (c *MySQLClient) GetDB() *sql.DB {
	return c.db
}
