package session

import "errors"

var (
	// ErrNoSessionCookie is returned when the request carries no session cookie,
	// or the cookie value failed decryption. This is expected for anonymous
	// visitors and is surfaced via Session.Err rather than failing the request.
	ErrNoSessionCookie = errors.New("no session cookie")
	// ErrNotFound is returned when a session cannot be found in storage.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when a session exists in storage but is past its expiry.
	ErrExpired = errors.New("session expired")
	// ErrSerialization is returned when session data cannot be encoded or decoded.
	ErrSerialization = errors.New("failed to serialize session data")
	// ErrInvalidData is returned when storage holds a structurally wrong value for a session.
	ErrInvalidData = errors.New("invalid session data in storage")
	// ErrNonIndexedStorage is returned when an indexed operation is requested
	// from a store that does not implement IndexedStore.
	ErrNonIndexedStorage = errors.New("storage doesn't support session indexing")
	// ErrBackend wraps opaque failures from the underlying storage engine.
	ErrBackend = errors.New("session storage backend error")
	// ErrSetupTeardown is returned when a storage lifecycle hook fails.
	ErrSetupTeardown = errors.New("session storage lifecycle hook failed")

	// ErrMissingStore is returned by New when no store is provided.
	ErrMissingStore = errors.New("session store is required")
	// ErrMissingCookieManager is returned by New when no cookie manager is provided.
	ErrMissingCookieManager = errors.New("cookie manager is required")
)
