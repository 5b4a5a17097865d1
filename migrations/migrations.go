// Package migrations embeds the portal's SQL schema.
package migrations

import "embed"

// FS holds every migration file
//
//go:embed *.sql
var FS embed.FS
