// Package store provides durable storage for published downloads.
//
// Two tables are maintained:
//   - updates: one row per published archive, unique on (mirror_id, url)
//   - sync_runs: one row per committed reconciliation run
//
// # Critical Patterns
//
// Atomic upserts
//   - Rows are written with INSERT ... ON CONFLICT(mirror_id, url) DO UPDATE
//   - Never read-then-branch, so concurrent writers cannot duplicate rows
//
// Mirror scoping
//   - Every read and delete on updates is filtered by mirror_id
//
// Deterministic query results
//   - Listing queries order by url (updates) or started_at, id (sync_runs)
//
// # Database Configuration
//
// SQLite (default, github.com/mattn/go-sqlite3):
//   - WAL mode, synchronous=NORMAL, busy_timeout=5000
//   - A single open connection
//
// PostgreSQL (github.com/jackc/pgx/v5/stdlib):
//   - Queries are written with ? placeholders and rebound to $N
package store
