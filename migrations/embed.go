// Package migrations embeds the schema in golang-migrate layout (NNNNNN_name.up.sql / .down.sql).
package migrations

import "embed"

// FS holds every migration file.
//
//go:embed *.sql
var FS embed.FS
