// Package all registers every storage backend. Import it for side effects
// from binaries that select a backend through configuration.
package all

import (
	_ "aurelion/internal/storage/mssql"
	_ "aurelion/internal/storage/postgres"
	_ "aurelion/internal/storage/sqlite"
)
