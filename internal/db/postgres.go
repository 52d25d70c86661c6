package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/json2relcsv/internal/schema"
)

// PostgresClient manages the connection to PostgreSQL and loads models with COPY
type PostgresClient struct {
	conn   *pgx.Conn
	logger *slog.Logger
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(ctx context.Context, connString string, logger *slog.Logger) (*PostgresClient, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostgresClient{conn: conn, logger: logger}, nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	return c.conn.Close(context.Background())
}

// GetConnection returns the underlying connection
func (c *PostgresClient) GetConnection() *pgx.Conn {
	return c.conn
}

// Load implements Loader. Rows are streamed with the COPY protocol.
func (c *PostgresClient) Load(ctx context.Context, s *schema.Schema) (stats *LoadStats, err error) {
	tables, err := loadOrder(s)
	if err != nil {
		return nil, err
	}

	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, t := range tables {
		if _, err := tx.Exec(ctx, Postgres.CreateTable(t)); err != nil {
			return nil, fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}
		for _, stmt := range Postgres.CreateIndexes(t) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return nil, fmt.Errorf("failed to create index on %s: %w", t.Name, err)
			}
		}
	}

	stats = &LoadStats{}
	for _, t := range tables {
		rows := make([][]any, 0, len(t.Rows))
		for _, row := range t.Rows {
			args, err := RowArgs(t, row)
			if err != nil {
				return nil, err
			}
			rows = append(rows, args)
		}

		n, err := tx.CopyFrom(ctx, pgx.Identifier{t.Name}, t.ColumnNames(), pgx.CopyFromRows(rows))
		if err != nil {
			return nil, fmt.Errorf("failed to copy rows into %s: %w", t.Name, err)
		}
		stats.Tables++
		stats.Rows += n
		c.logger.Debug("table loaded", "dialect", Postgres.Name, "table", t.Name, "rows", n)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	err = verifyCounts(ctx, tables, Postgres, func(ctx context.Context, query string) (int64, error) {
		var n int64
		err := c.conn.QueryRow(ctx, query).Scan(&n)
		return n, err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
