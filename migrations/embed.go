// Package migrations embeds the goose SQL migrations for every supported store.
package migrations

import "embed"

// FS holds one directory of migrations per dialect: postgres/ and sqlite/.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
