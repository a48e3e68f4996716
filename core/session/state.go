package session

import (
	"crypto/rand"
	"time"
)

const (
	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 24
)

// generateID returns a random alphanumeric session ID. Bytes outside the
// largest multiple of the alphabet size are rejected so every character is
// equally likely.
func generateID() string {
	const maxByte = 256 / len(idAlphabet) * len(idAlphabet)

	id := make([]byte, 0, idLength)
	buf := make([]byte, idLength)
	for len(id) < idLength {
		if _, err := rand.Read(buf); err != nil {
			panic("session: failed to read random bytes: " + err.Error())
		}
		for _, b := range buf {
			if int(b) >= maxByte {
				continue
			}
			id = append(id, idAlphabet[int(b)%len(idAlphabet)])
			if len(id) == idLength {
				break
			}
		}
	}
	return string(id)
}

// status tracks whether the active session needs a write-back at end of request.
type status uint8

const (
	// statusNew marks a session created this request, never persisted. Always saved.
	statusNew status = iota
	// statusExisting marks a session loaded from storage and unmodified. Never saved.
	statusExisting
	// statusUpdated marks a loaded session mutated this request. Always saved.
	statusUpdated
)

// active is the current live session within a request.
type active[T any] struct {
	id     string
	data   T
	ttl    time.Duration
	status status
}

// pendingWrite is the write-back tuple handed to the store at end of request.
type pendingWrite[T any] struct {
	id   string
	data T
	ttl  time.Duration
}

// state is the per-request session state machine. It is exclusively owned by
// one request's lifecycle; the Manager guards it with the request cell's mutex
// because multiple Load calls within a request share the same instance.
type state[T any] struct {
	current *active[T]
	// deleted holds the ID of the first session deleted during the request.
	// It is sticky: repeated deletes never overwrite it.
	deleted string
}

// restore populates the state with a session loaded from storage.
func (s *state[T]) restore(id string, data T, ttl time.Duration) {
	s.current = &active[T]{id: id, data: data, ttl: ttl, status: statusExisting}
}

func (s *state[T]) id() (string, bool) {
	if s.current == nil {
		return "", false
	}
	return s.current.id, true
}

func (s *state[T]) get() (T, bool) {
	if s.current == nil {
		var zero T
		return zero, false
	}
	return s.current.data, true
}

func (s *state[T]) ttl() (time.Duration, bool) {
	if s.current == nil {
		return 0, false
	}
	return s.current.ttl, true
}

func (s *state[T]) isNew() bool {
	return s.current != nil && s.current.status == statusNew
}

// setData replaces the active session's data, or creates a new session with a
// freshly generated ID and the default TTL when none is active.
func (s *state[T]) setData(data T, defaultTTL time.Duration) {
	if s.current != nil {
		s.current.data = data
		s.markUpdated()
		return
	}
	s.current = &active[T]{id: generateID(), data: data, ttl: defaultTTL, status: statusNew}
}

// setTTL overwrites the active session's TTL. No-op when there is no session.
func (s *state[T]) setTTL(ttl time.Duration) {
	if s.current == nil {
		return
	}
	s.current.ttl = ttl
	s.markUpdated()
}

// tapMut hands the current data to fn (zero value and ok=false when no session
// is active). fn returns the replacement data and whether the session should
// stay alive; returning keep=false deletes the session. Reports whether a
// deletion occurred.
func (s *state[T]) tapMut(fn func(data T, ok bool) (T, bool), defaultTTL time.Duration) bool {
	if cur := s.current; cur != nil {
		data, keep := fn(cur.data, true)
		if !keep {
			s.remove()
			return true
		}
		cur.data = data
		s.markUpdated()
		return false
	}

	var zero T
	data, keep := fn(zero, false)
	if !keep {
		s.remove()
		return true
	}
	s.current = &active[T]{id: generateID(), data: data, ttl: defaultTTL, status: statusNew}
	return false
}

// markUpdated promotes an existing session to updated so it will be saved.
// New sessions stay new; there is no transition back to existing.
func (s *state[T]) markUpdated() {
	if s.current != nil && s.current.status == statusExisting {
		s.current.status = statusUpdated
	}
}

// remove clears the active session and records its ID as deleted. Safe to call
// repeatedly within a request: only the first deleted ID is kept.
func (s *state[T]) remove() {
	if s.current == nil {
		return
	}
	if s.deleted == "" {
		s.deleted = s.current.id
	}
	s.current = nil
}

func (s *state[T]) deletedID() string {
	return s.deleted
}

// identifier extracts the secondary identifier from the active session's data,
// if the payload type opts into indexing.
func (s *state[T]) identifier() (string, bool) {
	if s.current == nil {
		return "", false
	}
	return IdentifierOf(s.current.data)
}

// takeForStorage returns the write-back tuple (only for new or updated
// sessions) and the deleted session ID, consuming the internal state. It must
// be called exactly once per request, at the very end; a second call yields
// nothing.
func (s *state[T]) takeForStorage() (*pendingWrite[T], string) {
	var pending *pendingWrite[T]
	if cur := s.current; cur != nil && (cur.status == statusNew || cur.status == statusUpdated) {
		pending = &pendingWrite[T]{id: cur.id, data: cur.data, ttl: cur.ttl}
	}
	s.current = nil
	deleted := s.deleted
	s.deleted = ""
	return pending, deleted
}
