// Package mongo provides MongoDB client initialization with retry logic and
// health checking. The returned database plugs straight into
// sessionstore.NewMongoStore.
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "app")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	store, err := sessionstore.NewMongoStore[UserSession](db,
//		sessionstore.DefaultMongoStoreConfig())
package mongo
