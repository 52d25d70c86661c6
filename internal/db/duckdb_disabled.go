//go:build !duckdb

package db

import (
	"context"
	"log/slog"
)

// DuckDBEnabled reports whether DuckDB support is compiled in
const DuckDBEnabled = false

// NewDuckDBClient always fails in this build
func NewDuckDBClient(_ context.Context, _ string, _ *slog.Logger) (Loader, error) {
	return nil, ErrDuckDBDisabled
}
