// Package pg provides PostgreSQL connection pooling, migrations and health
// checking on top of pgx. The returned pool plugs straight into
// sessionstore.NewPostgresStore.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	// Provision the sessions table.
//	if err := pg.Migrate(ctx, pool, sessionstore.Migrations, "migrations", logger); err != nil {
//		log.Fatal(err)
//	}
//
//	store, err := sessionstore.NewPostgresStore[UserSession](pool,
//		sessionstore.DefaultPostgresStoreConfig())
//
// Migrate runs goose migrations from any fs.FS, so embedded migration
// bundles work without touching the filesystem.
package pg
