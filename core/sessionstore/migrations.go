package sessionstore

import "embed"

// Migrations contains the goose migrations that provision the Postgres
// sessions table expected by PostgresStore. Apply them with
// integration/database/pg.Migrate or your own migration runner.
//
//go:embed migrations/*.sql
var Migrations embed.FS
