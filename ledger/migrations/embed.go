// Package migrations holds the SQLite journal schema.
package migrations

import "embed"

// FS contains embedded SQLite migrations for the ledger journal.
//
//go:embed *.sql
var FS embed.FS
