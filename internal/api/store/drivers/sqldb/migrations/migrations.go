// Package migrations embeds the schema for each supported dialect. Each
// dialect lives in its own directory and is versioned independently.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
