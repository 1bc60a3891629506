// Package exec runs compiled SQL against a live database.
//
// It is the thin "render -> execute(sql, params) -> rows | rows affected"
// boundary used by the CLI and by the semantic-equivalence tests. Two
// executors are provided:
//   - SQLExecutor wraps database/sql; OpenSQLite opens a go-sqlite3 file
//     with the pragmas below.
//   - PgxExecutor wraps a pgx/v5 connection or pool.
//
// # SQLite Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Rows are fully materialized. Pooling, transactions and retries are left
// to the caller.
package exec
