// Package sessionstore provides storage backends for core/session.
//
// Five backends are included:
//
//   - MemoryStore: in-process map with TTL sweeping. Good for tests and
//     single-instance deployments.
//   - CookieStore: stateless, keeps the whole payload in an encrypted cookie.
//   - RedisStore: go-redis backed, with a set-based identifier index.
//   - PostgresStore: pgx backed, with a cleanup janitor and column index.
//   - MongoStore: mongo-driver backed, with native TTL index expiry.
//
// MemoryStore, RedisStore, PostgresStore and MongoStore implement
// session.IndexedStore and support lookup and bulk invalidation by the
// identifier a payload reports through session.Identifier.
//
// # Choosing a backend
//
//	// In-memory, for tests or a single process
//	store := sessionstore.NewMemoryStore[UserSession]()
//
//	// Redis, JSON-encoded payloads
//	store, err := sessionstore.NewRedisStore(client,
//		sessionstore.JSONCodec[UserSession]{},
//		sessionstore.DefaultRedisStoreConfig())
//
//	// Postgres
//	store, err := sessionstore.NewPostgresStore[UserSession](pool,
//		sessionstore.DefaultPostgresStoreConfig())
//
//	// Mongo
//	store, err := sessionstore.NewMongoStore[UserSession](db,
//		sessionstore.DefaultMongoStoreConfig())
//
//	// Cookie-only, no server-side state
//	store := sessionstore.NewCookieStore[UserSession](
//		sessionstore.DefaultCookieStoreConfig())
//
// Backends with background resources implement session.Initializer and
// session.Shutdowner; the session manager's Setup and Shutdown methods drive
// them through type assertions.
package sessionstore
