// Package migrations embeds the goose schema migrations for the generation
// ledger and the session key registry. The SQL is portable between
// PostgreSQL and SQLite.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
