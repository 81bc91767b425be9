package migrations

import "embed"

// Migration files bundled at compile time so the binary deploys without
// external file dependencies.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
