// Package migrations embeds the trustd schema's SQL and exposes it as a
// remind101/migrate migration list.
//
// Grounded on claircore's libvuln/migrations/migrations.go (embed *.sql,
// runFile closure, ordered []migrate.Migration slice).
package migrations

import (
	"database/sql"
	"embed"

	"github.com/remind101/migrate"
)

// MigrationTable is the name of the table remind101/migrate uses to track
// which migrations have already run.
const MigrationTable = "trustd_migrations"

//go:embed trustd/*.sql
var fs embed.FS

func runFile(n string) func(*sql.Tx) error {
	b, err := fs.ReadFile("trustd/" + n)
	return func(tx *sql.Tx) error {
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(b)); err != nil {
			return err
		}
		return nil
	}
}

// Migrations is the ordered list of schema migrations.
var Migrations = []migrate.Migration{
	{
		ID: 1,
		Up: runFile("01-init.sql"),
	},
}
