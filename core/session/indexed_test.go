package session_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flexsession/core/session"
	"github.com/dmitrymomot/flexsession/core/sessionstore"
)

// spawnSessions creates n independent sessions for the same user and returns
// the cookie jar of the last one.
func spawnSessions(t *testing.T, m *session.Manager[userData], user userData, n int) []*http.Cookie {
	t.Helper()

	var jar []*http.Cookie
	for range n {
		jar = serve(t, m, nil, func(w http.ResponseWriter, r *http.Request) {
			m.Load(w, r).Set(user)
		})
	}
	return jar
}

func TestIndexed_AllSessions(t *testing.T) {
	t.Parallel()

	m, err := session.New(sessionstore.NewMemoryStore[userData](), newCookieManager(t))
	require.NoError(t, err)

	user := userData{UserID: "user-1", Name: "Alice"}
	jar := spawnSessions(t, m, user, 3)

	serve(t, m, jar, func(w http.ResponseWriter, r *http.Request) {
		sess := m.Load(w, r)
		require.NoError(t, sess.Err())

		ids, err := sess.AllSessionIDs(r.Context())
		require.NoError(t, err)
		assert.Len(t, ids, 3)
		assert.Contains(t, ids, sess.ID())

		sessions, err := sess.AllSessions(r.Context())
		require.NoError(t, err)
		require.Len(t, sessions, 3)
		for _, s := range sessions {
			assert.Equal(t, user, s.Data)
		}
	})
}

func TestIndexed_InvalidateAllKeepCurrent(t *testing.T) {
	t.Parallel()

	m, err := session.New(sessionstore.NewMemoryStore[userData](), newCookieManager(t))
	require.NoError(t, err)

	jar := spawnSessions(t, m, userData{UserID: "user-1"}, 3)

	serve(t, m, jar, func(w http.ResponseWriter, r *http.Request) {
		sess := m.Load(w, r)
		require.NoError(t, sess.Err())

		count, err := sess.InvalidateAll(r.Context(), true)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		ids, err := sess.AllSessionIDs(r.Context())
		require.NoError(t, err)
		assert.Equal(t, []string{sess.ID()}, ids)
	})

	// The surviving session still works on the next request.
	serve(t, m, jar, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, m.Load(w, r).Err())
	})
}

func TestIndexed_InvalidateAll(t *testing.T) {
	t.Parallel()

	m, err := session.New(sessionstore.NewMemoryStore[userData](), newCookieManager(t))
	require.NoError(t, err)

	jar := spawnSessions(t, m, userData{UserID: "user-1"}, 3)

	serve(t, m, jar, func(w http.ResponseWriter, r *http.Request) {
		sess := m.Load(w, r)
		count, err := sess.InvalidateAll(r.Context(), false)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	// The current session's record went with the rest.
	serve(t, m, jar, func(w http.ResponseWriter, r *http.Request) {
		assert.ErrorIs(t, m.Load(w, r).Err(), session.ErrNotFound)
	})
}

func TestIndexed_NoIdentifier(t *testing.T) {
	t.Parallel()

	m, err := session.New(sessionstore.NewMemoryStore[userData](), newCookieManager(t))
	require.NoError(t, err)

	// Anonymous payload: UserID empty means not indexed.
	jar := serve(t, m, nil, func(w http.ResponseWriter, r *http.Request) {
		m.Load(w, r).Set(userData{Name: "guest"})
	})

	serve(t, m, jar, func(w http.ResponseWriter, r *http.Request) {
		sess := m.Load(w, r)
		require.NoError(t, sess.Err())

		sessions, err := sess.AllSessions(r.Context())
		require.NoError(t, err)
		assert.Empty(t, sessions)

		count, err := sess.InvalidateAll(r.Context(), false)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestIndexed_NonIndexedStorage(t *testing.T) {
	t.Parallel()

	m, err := session.New(
		sessionstore.NewCookieStore[userData](sessionstore.DefaultCookieStoreConfig()),
		newCookieManager(t))
	require.NoError(t, err)

	serve(t, m, nil, func(w http.ResponseWriter, r *http.Request) {
		sess := m.Load(w, r)
		sess.Set(userData{UserID: "user-1"})

		_, err := sess.AllSessions(r.Context())
		assert.ErrorIs(t, err, session.ErrNonIndexedStorage)
		_, err = sess.SessionIDsByIdentifier(r.Context(), "user-1")
		assert.ErrorIs(t, err, session.ErrNonIndexedStorage)
		_, err = sess.InvalidateByIdentifier(r.Context(), "user-1")
		assert.ErrorIs(t, err, session.ErrNonIndexedStorage)
	})
}

func TestIndexed_ArbitraryIdentifier(t *testing.T) {
	t.Parallel()

	m, err := session.New(sessionstore.NewMemoryStore[userData](), newCookieManager(t))
	require.NoError(t, err)

	spawnSessions(t, m, userData{UserID: "user-1"}, 2)
	spawnSessions(t, m, userData{UserID: "user-2"}, 1)

	// An admin session inspects other users' sessions.
	serve(t, m, nil, func(w http.ResponseWriter, r *http.Request) {
		sess := m.Load(w, r)

		ids, err := sess.SessionIDsByIdentifier(r.Context(), "user-1")
		require.NoError(t, err)
		assert.Len(t, ids, 2)

		sessions, err := sess.SessionsByIdentifier(r.Context(), "user-2")
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, "user-2", sessions[0].Data.UserID)

		count, err := sess.InvalidateByIdentifier(r.Context(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		ids, err = sess.SessionIDsByIdentifier(r.Context(), "user-1")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
