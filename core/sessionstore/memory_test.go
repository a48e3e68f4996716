package sessionstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flexsession/core/session"
	"github.com/dmitrymomot/flexsession/core/sessionstore"
)

type testUser struct {
	UserID string `json:"user_id" bson:"user_id"`
	Name   string `json:"name" bson:"name"`
}

func (u testUser) SessionIdentifier() (string, bool) {
	return u.UserID, u.UserID != ""
}

func TestMemoryStore_SaveLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessionstore.NewMemoryStore[testUser]()

	id := uuid.NewString()
	user := testUser{UserID: "user-1", Name: "Alice"}
	require.NoError(t, store.Save(ctx, id, user, time.Hour))

	data, ttl, err := store.Load(ctx, id, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, user, data)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestMemoryStore_LoadMissing(t *testing.T) {
	t.Parallel()

	store := sessionstore.NewMemoryStore[testUser]()
	_, _, err := store.Load(context.Background(), uuid.NewString(), 0, nil)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryStore_Expiration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessionstore.NewMemoryStore[testUser]()

	id := uuid.NewString()
	require.NoError(t, store.Save(ctx, id, testUser{UserID: "user-1"}, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, _, err := store.Load(ctx, id, 0, nil)
	assert.ErrorIs(t, err, session.ErrExpired)

	// The expired entry was reaped on first touch.
	_, _, err = store.Load(ctx, id, 0, nil)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryStore_RollingLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessionstore.NewMemoryStore[testUser]()

	id := uuid.NewString()
	require.NoError(t, store.Save(ctx, id, testUser{UserID: "user-1"}, 50*time.Millisecond))

	_, ttl, err := store.Load(ctx, id, time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	// The refreshed expiry outlives the original one.
	time.Sleep(70 * time.Millisecond)
	_, _, err = store.Load(ctx, id, 0, nil)
	require.NoError(t, err)
}

func TestMemoryStore_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessionstore.NewMemoryStore[testUser]()

	id := uuid.NewString()
	require.NoError(t, store.Save(ctx, id, testUser{UserID: "user-1"}, time.Hour))
	require.NoError(t, store.Delete(ctx, id, nil))

	_, _, err := store.Load(ctx, id, 0, nil)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// Deleting a nonexistent session is not an error.
	require.NoError(t, store.Delete(ctx, id, nil))
	require.NoError(t, store.Delete(ctx, uuid.NewString(), nil))
}

func TestMemoryStore_Index(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessionstore.NewMemoryStore[testUser]()

	aliceIDs := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	for _, id := range aliceIDs {
		require.NoError(t, store.Save(ctx, id, testUser{UserID: "alice"}, time.Hour))
	}
	bobID := uuid.NewString()
	require.NoError(t, store.Save(ctx, bobID, testUser{UserID: "bob"}, time.Hour))

	ids, err := store.SessionIDsByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, aliceIDs, ids)

	sessions, err := store.SessionsByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, sessions, 3)

	ids, err = store.SessionIDsByIdentifier(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{bobID}, ids)

	ids, err = store.SessionIDsByIdentifier(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryStore_IndexSkipsAnonymous(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessionstore.NewMemoryStore[testUser]()

	require.NoError(t, store.Save(ctx, uuid.NewString(), testUser{Name: "guest"}, time.Hour))

	ids, err := store.SessionIDsByIdentifier(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryStore_IdentifierChangeReindexes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessionstore.NewMemoryStore[testUser]()

	id := uuid.NewString()
	require.NoError(t, store.Save(ctx, id, testUser{UserID: "alice"}, time.Hour))
	require.NoError(t, store.Save(ctx, id, testUser{UserID: "bob"}, time.Hour))

	ids, err := store.SessionIDsByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = store.SessionIDsByIdentifier(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)
}

func TestMemoryStore_Invalidate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessionstore.NewMemoryStore[testUser]()

	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	for _, id := range ids {
		require.NoError(t, store.Save(ctx, id, testUser{UserID: "alice"}, time.Hour))
	}

	count, err := store.InvalidateByIdentifier(ctx, "alice", ids[0])
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// The excluded session survived.
	_, _, err = store.Load(ctx, ids[0], 0, nil)
	require.NoError(t, err)
	for _, id := range ids[1:] {
		_, _, err = store.Load(ctx, id, 0, nil)
		assert.ErrorIs(t, err, session.ErrNotFound)
	}

	count, err = store.InvalidateByIdentifier(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.InvalidateByIdentifier(ctx, "alice", "")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStore_ExpiredExcludedFromIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessionstore.NewMemoryStore[testUser]()

	live := uuid.NewString()
	require.NoError(t, store.Save(ctx, live, testUser{UserID: "alice"}, time.Hour))
	require.NoError(t, store.Save(ctx, uuid.NewString(), testUser{UserID: "alice"}, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	ids, err := store.SessionIDsByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{live}, ids)
}

func TestMemoryStore_Janitor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessionstore.NewMemoryStore[testUser](sessionstore.WithSweepInterval(10 * time.Millisecond))
	require.NoError(t, store.Setup(ctx))
	t.Cleanup(func() { _ = store.Shutdown(ctx) })

	id := uuid.NewString()
	require.NoError(t, store.Save(ctx, id, testUser{UserID: "user-1"}, 5*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	// The janitor already reaped the entry, so the load reports NotFound
	// rather than Expired.
	_, _, err := store.Load(ctx, id, 0, nil)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryStore_LifecycleIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := sessionstore.NewMemoryStore[testUser]()

	// Shutdown before Setup is a no-op.
	require.NoError(t, store.Shutdown(ctx))

	require.NoError(t, store.Setup(ctx))
	require.NoError(t, store.Setup(ctx))
	require.NoError(t, store.Shutdown(ctx))
	require.NoError(t, store.Shutdown(ctx))
}
