// Package session provides pluggable, typed session state management for Go
// web applications.
//
// A session is an opaque random ID carried in an encrypted cookie, mapped to a
// typed application payload persisted in one of several interchangeable
// storage backends (in-memory, client-side cookie, Redis, PostgreSQL,
// MongoDB, see core/sessionstore). The package tracks the per-request
// session state machine and guarantees exactly one storage load and at most
// one save-or-delete per request, reflecting only the final state.
//
// # Core Components
//
//   - Session[T]: per-request handle exposing the mutation API
//   - Manager[T]: lifecycle coordinator (middleware, lazy load, flush)
//   - Store[T]: persistence contract implemented by backends
//   - IndexedStore[T]: optional capability for grouping sessions under one
//     identifier, enabling bulk enumeration and invalidation
//
// # Basic Usage
//
//	type UserSession struct {
//		UserID string `json:"user_id"`
//		Theme  string `json:"theme"`
//	}
//
//	// Opt into identifier indexing (optional).
//	func (s UserSession) SessionIdentifier() (string, bool) {
//		return s.UserID, s.UserID != ""
//	}
//
//	cookies, _ := cookie.New([]string{secret})
//	store := sessionstore.NewMemoryStore[UserSession]()
//	manager, _ := session.New[UserSession](store, cookies)
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
//		sess := manager.Load(w, r)
//		if data, ok := sess.Get(); ok {
//			fmt.Fprintf(w, "hello %s", data.UserID)
//			return
//		}
//		http.Error(w, "unauthorized", http.StatusUnauthorized)
//	})
//
//	handler := manager.Middleware()(mux)
//
// Mutations through Session take effect in storage once, after the handler
// returns. Load failures never abort the request: the session presents as
// empty and Session.Err explains why.
//
// # Concurrency
//
// A Store instance is shared by all in-flight requests and must be safe for
// concurrent use. Session state is exclusively owned by one request; the
// internal mutex only serializes multiple Load call sites within that request.
// Concurrent requests for the same session ID may race (last write wins);
// load-modify-save cycles are not transactionally isolated across requests.
package session
