//go:build duckdb

package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb"
)

// DuckDBEnabled reports whether DuckDB support is compiled in
const DuckDBEnabled = true

// NewDuckDBClient opens the DuckDB database at path; "" means in-memory
func NewDuckDBClient(ctx context.Context, path string, logger *slog.Logger) (Loader, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewSQLLoader(db, DuckDB, logger), nil
}
