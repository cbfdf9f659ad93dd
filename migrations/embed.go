// Package migrations embeds the SmartEgg SQL schema into the binary.
//
// Importing it for side effects registers the files with the database
// package:
//
//	import _ "github.com/smartegg/smartegg-core/migrations"
package migrations

import (
	"embed"

	"github.com/smartegg/smartegg-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
