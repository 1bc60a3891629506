package exec

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/sqlopt/internal/ast"
)

// Executor runs one SQL statement with positional arguments.
type Executor interface {
	// Query runs a statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)

	// Exec runs a statement and reports the number of rows it affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	Close() error
}

// Rows is a fully read result set.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Len returns the number of rows.
func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Values)
}

// Strings formats every value with FormatValue.
func (r *Rows) Strings() [][]string {
	if r == nil {
		return nil
	}
	out := make([][]string, len(r.Values))
	for i, row := range r.Values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = FormatValue(v)
		}
	}
	return out
}

// FormatValue prints a driver value the way the CLI shows it: NULL for
// nil, text for byte slices, shortest form for floats.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

// Open connects to dsn. postgres:// and postgresql:// URLs use pgx;
// anything else is a SQLite file path (or ":memory:").
func Open(ctx context.Context, dsn string) (Executor, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if Kind(dsn) == "postgres" {
		return ConnectPostgres(ctx, dsn)
	}
	return OpenSQLite(strings.TrimPrefix(dsn, "sqlite://"))
}

// Kind names the database family behind dsn, as Open would choose it.
func Kind(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// Outcome is what one statement produced: rows for queries and RETURNING
// statements, an affected-row count otherwise.
type Outcome struct {
	Rows         *Rows
	RowsAffected int64
}

// Run executes sql on ex, reading rows when returnsRows is set.
func Run(ctx context.Context, ex Executor, sql string, args []any, returnsRows bool) (*Outcome, error) {
	if returnsRows {
		rows, err := ex.Query(ctx, sql, args...)
		if err != nil {
			return nil, err
		}
		return &Outcome{Rows: rows, RowsAffected: int64(rows.Len())}, nil
	}
	n, err := ex.Exec(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &Outcome{RowsAffected: n}, nil
}

// ReturnsRows reports whether stmt produces a result set: every query,
// and DML with a RETURNING list.
func ReturnsRows(stmt ast.Statement) bool {
	switch s := stmt.(type) {
	case *ast.Query:
		return true
	case *ast.Insert:
		return len(s.Returning) > 0
	case *ast.Update:
		return len(s.Returning) > 0
	case *ast.Delete:
		return len(s.Returning) > 0
	}
	return false
}
