package session

import (
	"log/slog"
	"time"
)

// Session is the per-request handle to the session state. It is obtained from
// Manager.Load and stays valid for the lifetime of the request. All mutations
// are synchronous and take effect in storage once, after the handler returns.
//
// A Session always exists: when no valid session was found, Get returns
// ok=false and Err reports why (ErrNoSessionCookie, ErrExpired, ...). Whether
// an empty session is fatal is the application's call.
type Session[T any] struct {
	cell   *cell[T]
	jar    *CookieJar
	store  Store[T]
	config Config
	logger *slog.Logger
}

// ID returns the session ID, or an empty string when no session is active.
func (s *Session[T]) ID() string {
	s.cell.mu.Lock()
	defer s.cell.mu.Unlock()
	id, _ := s.cell.st.id()
	return id
}

// Get returns a copy of the session data. ok is false when no session is active.
func (s *Session[T]) Get() (T, bool) {
	s.cell.mu.Lock()
	defer s.cell.mu.Unlock()
	return s.cell.st.get()
}

// Tap invokes fn with the current session data without triggering any
// write-back. ok is false when no session is active.
func (s *Session[T]) Tap(fn func(data T, ok bool)) {
	s.cell.mu.Lock()
	data, ok := s.cell.st.get()
	s.cell.mu.Unlock()
	fn(data, ok)
}

// Set replaces the session data, creating a new session with a fresh ID and
// the default TTL when none is active. The session ID cookie is rewritten
// inline.
func (s *Session[T]) Set(data T) {
	s.cell.mu.Lock()
	s.cell.st.setData(data, s.config.defaultTTL())
	s.cell.mu.Unlock()
	s.updateCookies()
}

// TapMut hands fn the current session data for mutation (zero value and
// ok=false when no session is active). fn returns the replacement data and
// whether the session should stay alive: returning keep=false deletes the
// session, anything else updates it, creating a new session when needed.
// This is the universal primitive behind Set, Delete and the keyed helpers.
func (s *Session[T]) TapMut(fn func(data T, ok bool) (T, bool)) {
	s.cell.mu.Lock()
	deleted := s.cell.st.tapMut(fn, s.config.defaultTTL())
	s.cell.mu.Unlock()

	if deleted {
		s.removeCookies()
		return
	}
	s.updateCookies()
}

// SetTTL overwrites the session's TTL, e.g. to extend an active session.
// No-op when there is no active session.
func (s *Session[T]) SetTTL(ttl time.Duration) {
	s.cell.mu.Lock()
	s.cell.st.setTTL(ttl)
	s.cell.mu.Unlock()
	s.updateCookies()
}

// TTL returns the session's TTL, falling back to the configured default when
// no session is active.
func (s *Session[T]) TTL() time.Duration {
	s.cell.mu.Lock()
	defer s.cell.mu.Unlock()
	if ttl, ok := s.cell.st.ttl(); ok {
		return ttl
	}
	return s.config.defaultTTL()
}

// ExpiresAt returns the absolute expiry time computed from the current TTL.
func (s *Session[T]) ExpiresAt() time.Time {
	return time.Now().Add(s.TTL())
}

// Delete removes the session. Idempotent: repeated calls within a request keep
// the originally deleted ID. The storage record is removed at end of request;
// the session ID cookie is removed inline.
func (s *Session[T]) Delete() {
	s.cell.mu.Lock()
	s.cell.st.remove()
	s.cell.mu.Unlock()
	s.removeCookies()
}

// Err reports why session retrieval came back empty, e.g. ErrNoSessionCookie
// for an anonymous visitor or ErrSerialization for a corrupt record. It is nil
// when a session was loaded successfully.
func (s *Session[T]) Err() error {
	s.cell.mu.Lock()
	defer s.cell.mu.Unlock()
	return s.cell.err
}

// updateCookies rewrites the session ID cookie and notifies cookie-backed
// storage. Called after every non-deleting mutation so the outgoing cookie
// always reflects the final in-request state.
func (s *Session[T]) updateCookies() {
	s.cell.mu.Lock()
	id, ok := s.cell.st.id()
	data, _ := s.cell.st.get()
	ttl, hasTTL := s.cell.st.ttl()
	s.cell.mu.Unlock()

	if !ok {
		return
	}
	if !hasTTL {
		ttl = s.config.defaultTTL()
	}

	if err := s.jar.Set(s.config.CookieName, id, s.config.cookieOptions()...); err != nil {
		s.logger.Error("failed to write session cookie",
			slog.String("session_id", id),
			slog.Any("error", err))
	}

	if cw, ok := s.store.(CookieWriter[T]); ok {
		if err := cw.SaveCookie(id, &data, ttl, s.jar); err != nil {
			s.logger.Error("failed to save session to cookie storage",
				slog.String("session_id", id),
				slog.Any("error", err))
		}
	}
}

// removeCookies drops the session ID cookie and notifies cookie-backed storage
// of the deletion.
func (s *Session[T]) removeCookies() {
	s.jar.Remove(s.config.CookieName, s.config.removalOptions()...)

	s.cell.mu.Lock()
	deletedID := s.cell.st.deletedID()
	s.cell.mu.Unlock()

	if deletedID == "" {
		return
	}
	if cw, ok := s.store.(CookieWriter[T]); ok {
		if err := cw.SaveCookie(deletedID, nil, 0, s.jar); err != nil {
			s.logger.Error("failed to delete session from cookie storage",
				slog.String("session_id", deletedID),
				slog.Any("error", err))
		}
	}
}
