// Package migrations holds the SQLite schema as numbered SQL files.
//
// Files are named NNN_name.up.sql and NNN_name.down.sql; the store applies
// pending up files in version order and records each in schema_migrations.
package migrations

import "embed"

// FS holds the migration files.
//
//go:embed *.sql
var FS embed.FS
