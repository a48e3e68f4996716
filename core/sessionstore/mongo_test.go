package sessionstore_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flexsession/core/session"
	"github.com/dmitrymomot/flexsession/core/sessionstore"
	"github.com/dmitrymomot/flexsession/integration/database/mongo"
)

// setupMongo connects to the server named by MONGODB_URL and creates a store
// over a collection unique to the test. Tests are skipped when the variable
// is unset.
func setupMongo(t *testing.T) *sessionstore.MongoStore[testUser] {
	t.Helper()

	connURL := os.Getenv("MONGODB_URL")
	if connURL == "" {
		t.Skip("MONGODB_URL is not set, skipping mongo integration tests")
	}

	ctx := context.Background()
	db, err := mongo.NewWithDatabase(ctx, mongo.Config{
		ConnectionURL:   connURL,
		ConnectTimeout:  10 * time.Second,
		MaxPoolSize:     10,
		MinPoolSize:     1,
		MaxConnIdleTime: time.Minute,
		RetryWrites:     true,
		RetryReads:      true,
		RetryAttempts:   1,
		RetryInterval:   time.Second,
	}, "flexsession_test")
	require.NoError(t, err)

	collection := "sessions_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	t.Cleanup(func() {
		_ = db.Collection(collection).Drop(context.Background())
	})

	store, err := sessionstore.NewMongoStore[testUser](db, sessionstore.MongoStoreConfig{Collection: collection})
	require.NoError(t, err)
	require.NoError(t, store.Setup(ctx))
	return store
}

func TestMongoStore_SaveLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := setupMongo(t)

	id := uuid.NewString()
	user := testUser{UserID: "user-1", Name: "Alice"}
	require.NoError(t, store.Save(ctx, id, user, time.Hour))

	data, ttl, err := store.Load(ctx, id, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, user, data)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	// Upsert replaces the document.
	user.Name = "Alicia"
	require.NoError(t, store.Save(ctx, id, user, time.Hour))
	data, _, err = store.Load(ctx, id, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", data.Name)
}

func TestMongoStore_LoadMissing(t *testing.T) {
	t.Parallel()

	store := setupMongo(t)
	_, _, err := store.Load(context.Background(), uuid.NewString(), 0, nil)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMongoStore_Expiration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := setupMongo(t)

	id := uuid.NewString()
	require.NoError(t, store.Save(ctx, id, testUser{UserID: "user-1"}, 10*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	// The TTL monitor only runs periodically, so the document is still there
	// and expiry is detected by the read itself.
	_, _, err := store.Load(ctx, id, 0, nil)
	assert.ErrorIs(t, err, session.ErrExpired)

	_, _, err = store.Load(ctx, id, time.Hour, nil)
	assert.ErrorIs(t, err, session.ErrExpired)
}

func TestMongoStore_RollingLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := setupMongo(t)

	id := uuid.NewString()
	require.NoError(t, store.Save(ctx, id, testUser{UserID: "user-1"}, time.Minute))

	_, ttl, err := store.Load(ctx, id, time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	_, ttl, err = store.Load(ctx, id, 0, nil)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute, "expiry should have been refreshed")
}

func TestMongoStore_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := setupMongo(t)

	id := uuid.NewString()
	require.NoError(t, store.Save(ctx, id, testUser{UserID: "user-1"}, time.Hour))
	require.NoError(t, store.Delete(ctx, id, nil))

	_, _, err := store.Load(ctx, id, 0, nil)
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, store.Delete(ctx, id, nil))
}

func TestMongoStore_Index(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := setupMongo(t)

	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	for _, id := range ids {
		require.NoError(t, store.Save(ctx, id, testUser{UserID: "alice"}, time.Hour))
	}
	require.NoError(t, store.Save(ctx, uuid.NewString(), testUser{UserID: "bob"}, time.Hour))
	// Anonymous sessions are not indexed.
	require.NoError(t, store.Save(ctx, uuid.NewString(), testUser{Name: "guest"}, time.Hour))

	got, err := store.SessionIDsByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, got)

	sessions, err := store.SessionsByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, sessions, 3)

	count, err := store.InvalidateByIdentifier(ctx, "alice", ids[0])
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	got, err = store.SessionIDsByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0]}, got)

	count, err = store.InvalidateByIdentifier(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
