// Package migrations contains embedded SQL migration files for database schema management.
package migrations

import "embed"

// Files exposes the compiled-in migration SQL files. Each supported dialect
// has its own subdirectory because SQLite and PostgreSQL disagree on
// auto-increment and timestamp column syntax.
//
//go:embed sqlite/*.sql postgres/*.sql
var Files embed.FS
