package exec

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxConn is the part of *pgx.Conn (and *pgxpool.Pool) the executor uses.
type PgxConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgxExecutor runs statements over a pgx connection.
type PgxExecutor struct {
	conn  PgxConn
	close func() error
}

// NewPgxExecutor wraps conn. Close is a no-op; the caller owns conn.
func NewPgxExecutor(conn PgxConn) *PgxExecutor {
	return &PgxExecutor{conn: conn}
}

// ConnectPostgres opens a single connection to a PostgreSQL server.
func ConnectPostgres(ctx context.Context, dsn string) (*PgxExecutor, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &PgxExecutor{
		conn:  conn,
		close: func() error { return conn.Close(context.Background()) },
	}, nil
}

// Close closes a connection opened by ConnectPostgres.
func (e *PgxExecutor) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

// Query runs query and reads every row.
func (e *PgxExecutor) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	rows, err := e.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := &Rows{Columns: make([]string, len(fields)), Values: [][]any{}}
	for i, f := range fields {
		out.Columns[i] = f.Name
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(out.Values), err)
		}
		out.Values = append(out.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Exec runs query and returns the number of affected rows.
func (e *PgxExecutor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := e.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	return tag.RowsAffected(), nil
}
