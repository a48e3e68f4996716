package session

import "context"

// Indexed operations against sessions grouped by a secondary identifier (see
// Identifier). All of them return ErrNonIndexedStorage when the configured
// store does not implement IndexedStore. The "All*" variants derive the
// identifier from the current session and return empty results, not an error,
// when there is no current session or its payload isn't indexed.

// AllSessions returns every live session sharing the current session's identifier.
func (s *Session[T]) AllSessions(ctx context.Context) ([]IndexedSession[T], error) {
	ident, ok := s.currentIdentifier()
	if !ok {
		return nil, nil
	}
	store, err := s.indexedStore()
	if err != nil {
		return nil, err
	}
	return store.SessionsByIdentifier(ctx, ident)
}

// AllSessionIDs returns the IDs of every live session sharing the current
// session's identifier.
func (s *Session[T]) AllSessionIDs(ctx context.Context) ([]string, error) {
	ident, ok := s.currentIdentifier()
	if !ok {
		return nil, nil
	}
	store, err := s.indexedStore()
	if err != nil {
		return nil, err
	}
	return store.SessionIDsByIdentifier(ctx, ident)
}

// InvalidateAll deletes every session sharing the current session's
// identifier, keeping the current one alive when keepCurrent is true
// ("log out everywhere but here"). Returns the number of sessions invalidated.
func (s *Session[T]) InvalidateAll(ctx context.Context, keepCurrent bool) (int64, error) {
	ident, ok := s.currentIdentifier()
	if !ok {
		return 0, nil
	}
	store, err := s.indexedStore()
	if err != nil {
		return 0, err
	}

	var excludeID string
	if keepCurrent {
		excludeID = s.ID()
	}
	return store.InvalidateByIdentifier(ctx, ident, excludeID)
}

// SessionsByIdentifier returns every live session for an arbitrary identifier.
func (s *Session[T]) SessionsByIdentifier(ctx context.Context, identifier string) ([]IndexedSession[T], error) {
	store, err := s.indexedStore()
	if err != nil {
		return nil, err
	}
	return store.SessionsByIdentifier(ctx, identifier)
}

// SessionIDsByIdentifier returns the session IDs for an arbitrary identifier.
func (s *Session[T]) SessionIDsByIdentifier(ctx context.Context, identifier string) ([]string, error) {
	store, err := s.indexedStore()
	if err != nil {
		return nil, err
	}
	return store.SessionIDsByIdentifier(ctx, identifier)
}

// InvalidateByIdentifier deletes every session for an arbitrary identifier,
// returning the number invalidated.
func (s *Session[T]) InvalidateByIdentifier(ctx context.Context, identifier string) (int64, error) {
	store, err := s.indexedStore()
	if err != nil {
		return 0, err
	}
	return store.InvalidateByIdentifier(ctx, identifier, "")
}

func (s *Session[T]) currentIdentifier() (string, bool) {
	s.cell.mu.Lock()
	defer s.cell.mu.Unlock()
	return s.cell.st.identifier()
}

func (s *Session[T]) indexedStore() (IndexedStore[T], error) {
	if store, ok := s.store.(IndexedStore[T]); ok {
		return store, nil
	}
	return nil, ErrNonIndexedStorage
}
