// Package migrations embeds the SQL schema so the server and the migrate CLI
// ship without a migrations directory next to the binary.
package migrations

import "embed"

// FS holds every *.up.sql / *.down.sql pair
//
//go:embed *.sql
var FS embed.FS
