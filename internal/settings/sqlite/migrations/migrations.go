// Package migrations embeds the settings schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
