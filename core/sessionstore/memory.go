package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/flexsession/core/session"
)

// defaultSweepInterval is how often the memory janitor reaps expired entries.
const defaultSweepInterval = 5 * time.Minute

type memoryItem[T any] struct {
	data       T
	identifier string
	hasIdent   bool
	expires    time.Time
}

// MemoryStore keeps sessions in an in-process map. It is safe for concurrent
// use and implements session.IndexedStore. Expired entries are reaped lazily
// on access and periodically by a janitor started in Setup.
type MemoryStore[T any] struct {
	mu    sync.Mutex
	items map[string]memoryItem[T]
	index map[string]map[string]struct{}

	sweep time.Duration
	done  chan struct{}
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*memorySettings)

type memorySettings struct {
	sweep time.Duration
}

// WithSweepInterval sets the janitor interval. Zero disables the janitor;
// expired entries are then reaped only on access.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(s *memorySettings) {
		s.sweep = d
	}
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore[T any](opts ...MemoryOption) *MemoryStore[T] {
	settings := memorySettings{sweep: defaultSweepInterval}
	for _, opt := range opts {
		opt(&settings)
	}

	return &MemoryStore[T]{
		items: make(map[string]memoryItem[T]),
		index: make(map[string]map[string]struct{}),
		sweep: settings.sweep,
	}
}

// Load implements session.Store.
func (s *MemoryStore[T]) Load(ctx context.Context, id string, rollingTTL time.Duration, _ *session.CookieJar) (T, time.Duration, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return zero, 0, session.ErrNotFound
	}

	now := time.Now()
	if !item.expires.After(now) {
		s.removeLocked(id, item)
		return zero, 0, session.ErrExpired
	}

	if rollingTTL > 0 {
		item.expires = now.Add(rollingTTL)
		s.items[id] = item
		return item.data, rollingTTL, nil
	}

	return item.data, item.expires.Sub(now), nil
}

// Save implements session.Store.
func (s *MemoryStore[T]) Save(ctx context.Context, id string, data T, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	identifier, hasIdent := session.IdentifierOf(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-point the index when the payload's identifier changed.
	if prev, ok := s.items[id]; ok && prev.hasIdent && (!hasIdent || prev.identifier != identifier) {
		s.unindexLocked(prev.identifier, id)
	}

	s.items[id] = memoryItem[T]{
		data:       data,
		identifier: identifier,
		hasIdent:   hasIdent,
		expires:    time.Now().Add(ttl),
	}

	if hasIdent {
		ids, ok := s.index[identifier]
		if !ok {
			ids = make(map[string]struct{})
			s.index[identifier] = ids
		}
		ids[id] = struct{}{}
	}

	return nil
}

// Delete implements session.Store.
func (s *MemoryStore[T]) Delete(ctx context.Context, id string, _ *session.CookieJar) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.items[id]; ok {
		s.removeLocked(id, item)
	}
	return nil
}

// SessionsByIdentifier implements session.IndexedStore.
func (s *MemoryStore[T]) SessionsByIdentifier(ctx context.Context, identifier string) ([]session.IndexedSession[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sessions := make([]session.IndexedSession[T], 0, len(s.index[identifier]))
	for id := range s.index[identifier] {
		item, ok := s.items[id]
		if !ok || !item.expires.After(now) {
			if ok {
				delete(s.items, id)
			}
			delete(s.index[identifier], id)
			continue
		}
		sessions = append(sessions, session.IndexedSession[T]{ID: id, Data: item.data})
	}
	return sessions, nil
}

// SessionIDsByIdentifier implements session.IndexedStore.
func (s *MemoryStore[T]) SessionIDsByIdentifier(ctx context.Context, identifier string) ([]string, error) {
	sessions, err := s.SessionsByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	return ids, nil
}

// InvalidateByIdentifier implements session.IndexedStore.
func (s *MemoryStore[T]) InvalidateByIdentifier(ctx context.Context, identifier string, excludeID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var deleted int64
	for id := range s.index[identifier] {
		if id == excludeID {
			continue
		}
		item, ok := s.items[id]
		if ok {
			if item.expires.After(now) {
				deleted++
			}
			delete(s.items, id)
		}
		delete(s.index[identifier], id)
	}
	if len(s.index[identifier]) == 0 {
		delete(s.index, identifier)
	}
	return deleted, nil
}

// Setup starts the janitor. It implements session.Initializer.
func (s *MemoryStore[T]) Setup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sweep <= 0 || s.done != nil {
		return nil
	}
	s.done = make(chan struct{})
	go s.janitor(s.done)
	return nil
}

// Shutdown stops the janitor. Safe to call multiple times and without a prior
// Setup. It implements session.Shutdowner.
func (s *MemoryStore[T]) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	return nil
}

func (s *MemoryStore[T]) janitor(done chan struct{}) {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.reapExpired()
		}
	}
}

func (s *MemoryStore[T]) reapExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, item := range s.items {
		if !item.expires.After(now) {
			s.removeLocked(id, item)
		}
	}
}

func (s *MemoryStore[T]) removeLocked(id string, item memoryItem[T]) {
	delete(s.items, id)
	if item.hasIdent {
		s.unindexLocked(item.identifier, id)
	}
}

func (s *MemoryStore[T]) unindexLocked(identifier, id string) {
	if ids, ok := s.index[identifier]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.index, identifier)
		}
	}
}
