package session

import (
	"context"
	"time"
)

// Store defines the persistence contract for session backends.
// Implementations must be safe for concurrent use: one Store instance is
// shared across all in-flight requests.
type Store[T any] interface {
	// Load fetches session data and its remaining TTL by ID. When rollingTTL
	// is positive, the backend must atomically refresh the record's expiry as
	// part of the read and return the refreshed TTL; otherwise it returns the
	// remaining TTL. Returns ErrNotFound when absent, ErrExpired when present
	// but past expiry (backends relying on native TTL eviction may report
	// ErrNotFound instead).
	Load(ctx context.Context, id string, rollingTTL time.Duration, jar *CookieJar) (T, time.Duration, error)

	// Save upserts a session. Data and expiry must be overwritten together
	// from the caller's perspective.
	Save(ctx context.Context, id string, data T, ttl time.Duration) error

	// Delete removes a session. Deleting a nonexistent ID is not an error.
	Delete(ctx context.Context, id string, jar *CookieJar) error
}

// CookieWriter is implemented by stores that keep the payload inside the
// client cookie itself. SaveCookie is invoked synchronously whenever the
// Session updates cookies during the request, because Save and Delete run too
// late for cookie mutation. A nil data pointer signals deletion.
type CookieWriter[T any] interface {
	SaveCookie(id string, data *T, ttl time.Duration, jar *CookieJar) error
}

// IndexedSession pairs a session ID with its payload, as returned by
// identifier-indexed lookups.
type IndexedSession[T any] struct {
	ID   string
	Data T
}

// IndexedStore is implemented by stores that maintain a secondary index from
// payload identifiers (see Identifier) to session IDs. Whether a given store
// supports indexing is discovered with a type assertion; callers going through
// Session get ErrNonIndexedStorage when it doesn't.
type IndexedStore[T any] interface {
	Store[T]

	// SessionsByIdentifier returns all live sessions for the identifier.
	// An unknown identifier yields an empty result, not an error.
	SessionsByIdentifier(ctx context.Context, identifier string) ([]IndexedSession[T], error)

	// SessionIDsByIdentifier returns the IDs of all live sessions for the identifier.
	SessionIDsByIdentifier(ctx context.Context, identifier string) ([]string, error)

	// InvalidateByIdentifier bulk-deletes every session for the identifier,
	// except excludeID when non-empty, returning the number of sessions
	// actually deleted. Both the primary records and their index entries are
	// removed in as atomic a batch as the backend allows.
	InvalidateByIdentifier(ctx context.Context, identifier string, excludeID string) (int64, error)
}

// Initializer is implemented by stores that need resource setup at process
// start, such as spawning a cleanup janitor or provisioning indexes.
type Initializer interface {
	Setup(ctx context.Context) error
}

// Shutdowner is implemented by stores that hold background resources.
// Shutdown must be idempotent and safe to call even if Setup never ran.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}
