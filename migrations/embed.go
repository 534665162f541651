// Package migrations embeds the SQL schema migrations into the binary.
//
// Importing this package (usually for side effects from main) registers
// the files with the database package.
package migrations

import (
	"embed"

	"github.com/nerrad567/homio-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.RegisterMigrations(migrationsFS, ".")
}
