// Package migrations embeds the SQL schema files so the binary and the
// integration tests can apply them without caring about the working
// directory.
package migrations

import "embed"

// FS contains all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
