// Package warehouse adapts the analytical warehouse behind the query
// capability the sync layer depends on.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"commentsync/internal/ports"
)

// Client executes SQL text against the warehouse and returns rows as
// column-name keyed maps.
type Client struct {
	db *sql.DB
}

var _ ports.QueryRunner = (*Client)(nil)

// Open connects to the warehouse and verifies the connection.
func Open(ctx context.Context, dsn string) (*Client, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}
	return &Client{db: db}, nil
}

// NewClient wraps an existing connection, used by tests.
func NewClient(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close releases the warehouse connection.
func (c *Client) Close() error {
	return c.db.Close()
}

// Run executes the query and materializes every row.
func (c *Client) Run(ctx context.Context, query string) ([]ports.Row, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var result []ports.Row
	for rows.Next() {
		values := make([]any, len(columns))
		scanners := make([]any, len(columns))
		for i := range values {
			scanners[i] = &values[i]
		}
		if err := rows.Scan(scanners...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(ports.Row, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
				continue
			}
			row[name] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}
