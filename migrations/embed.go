// Package migrations embeds the SQL schema so goose can apply it from the
// server binary and from cmd/migrate without a filesystem path.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
