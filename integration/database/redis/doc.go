// Package redis provides Redis client initialization with retry logic and
// health checking. The returned client plugs straight into
// sessionstore.NewRedisStore.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	store, err := sessionstore.NewRedisStore(client,
//		sessionstore.JSONCodec[UserSession]{},
//		sessionstore.DefaultRedisStoreConfig())
//
// Healthcheck returns a func(context.Context) error suitable for readiness
// probes and health endpoints.
package redis
