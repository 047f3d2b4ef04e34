// Package migrations embeds the lightsync schema so the binary can create
// its history table without SQL files on disk.
package migrations

import "embed"

// FS holds the migration files at its root.
//
//go:embed *.sql
var FS embed.FS
