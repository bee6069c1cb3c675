// Package migrations embeds the placement schema.
package migrations

import "embed"

// FS holds the numbered up/down SQL files applied by database.Migrator.
//
//go:embed *.sql
var FS embed.FS
