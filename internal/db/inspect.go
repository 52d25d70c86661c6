package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/tordrt/json2relcsv/internal/schema"
)

// ErrCountMismatch is returned when the database holds a different number of
// rows than the model after a load
var ErrCountMismatch = errors.New("row count mismatch after load")

// CountFunc runs a single-value COUNT query
type CountFunc func(ctx context.Context, query string) (int64, error)

// TableCounts reads back the row count of each table
func TableCounts(ctx context.Context, tables []*schema.Table, d Dialect, count CountFunc) (map[string]int64, error) {
	counts := make(map[string]int64, len(tables))
	for _, t := range tables {
		n, err := count(ctx, d.CountRows(t.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to count rows of %s: %w", t.Name, err)
		}
		counts[t.Name] = n
	}
	return counts, nil
}

// verifyCounts compares the loaded row counts against the model
func verifyCounts(ctx context.Context, tables []*schema.Table, d Dialect, count CountFunc) error {
	counts, err := TableCounts(ctx, tables, d, count)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if got := counts[t.Name]; got != int64(len(t.Rows)) {
			return fmt.Errorf("%w: table %s has %d rows, want %d", ErrCountMismatch, t.Name, got, len(t.Rows))
		}
	}
	return nil
}
