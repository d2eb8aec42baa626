// Package target provides direct access to the local database for
// read-only inspection. The seeding pipeline itself goes through the
// external client tools; this pool only backs the validate command.
package target

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool manages a pool of connections to the local database
type Pool struct {
	pool     *pgxpool.Pool
	database string
}

// NewPool connects to the named local database using libpq defaults
// (unix socket, PGHOST/PGPORT/PGUSER when set).
func NewPool(ctx context.Context, database string) (*Pool, error) {
	dsn := "postgres:///" + url.PathEscape(database)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database %s: %w", database, err)
	}

	return &Pool{pool: pool, database: database}, nil
}

// Close closes all connections in the pool
func (p *Pool) Close() {
	p.pool.Close()
}

// Database returns the connected database name
func (p *Pool) Database() string {
	return p.database
}

// TableExists reports whether a table exists in the public schema
func (p *Pool) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`, table,
	).Scan(&exists)
	return exists, err
}

// RowCount returns the exact row count for a table
func (p *Pool) RowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	err := p.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table)),
	).Scan(&count)
	return count, err
}

// PartitionRowCount returns the number of rows whose partition column
// value is in the given set.
func (p *Pool) PartitionRowCount(ctx context.Context, table, column string, values []string) (int64, error) {
	var count int64
	err := p.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s::text = ANY($1)",
			quoteIdent(table), quoteIdent(column)),
		values,
	).Scan(&count)
	return count, err
}
