package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for range 100 {
		id := generateID()
		require.Len(t, id, idLength)
		for _, r := range id {
			assert.Contains(t, idAlphabet, string(r))
		}
		_, dup := seen[id]
		require.False(t, dup, "generated a duplicate ID")
		seen[id] = struct{}{}
	}
}

func TestGenerateID_UniformDistribution(t *testing.T) {
	t.Parallel()

	counts := make(map[rune]int, len(idAlphabet))
	const numIDs = 5000
	for range numIDs {
		for _, r := range generateID() {
			counts[r]++
		}
	}

	// Rejection sampling keeps every character equally likely. The 12%
	// tolerance is several standard deviations wide at this sample size but
	// still catches a byte-modulo mapping, which skews the first characters
	// of the alphabet by 25%.
	mean := float64(numIDs*idLength) / float64(len(idAlphabet))
	for _, r := range idAlphabet {
		assert.InDelta(t, mean, float64(counts[r]), mean*0.12,
			"character %q is over- or under-represented", r)
	}
}

func TestState_Restore(t *testing.T) {
	t.Parallel()

	var st state[string]
	st.restore("abc", "hello", time.Hour)

	id, ok := st.id()
	require.True(t, ok)
	assert.Equal(t, "abc", id)

	data, ok := st.get()
	require.True(t, ok)
	assert.Equal(t, "hello", data)

	ttl, ok := st.ttl()
	require.True(t, ok)
	assert.Equal(t, time.Hour, ttl)

	assert.False(t, st.isNew())

	// Loaded but untouched sessions are not written back.
	pending, deleted := st.takeForStorage()
	assert.Nil(t, pending)
	assert.Empty(t, deleted)
}

func TestState_SetData(t *testing.T) {
	t.Parallel()

	t.Run("creates new session with generated id", func(t *testing.T) {
		t.Parallel()

		var st state[string]
		st.setData("hello", time.Hour)

		id, ok := st.id()
		require.True(t, ok)
		assert.Len(t, id, idLength)
		assert.True(t, st.isNew())

		ttl, ok := st.ttl()
		require.True(t, ok)
		assert.Equal(t, time.Hour, ttl)

		pending, deleted := st.takeForStorage()
		require.NotNil(t, pending)
		assert.Equal(t, id, pending.id)
		assert.Equal(t, "hello", pending.data)
		assert.Equal(t, time.Hour, pending.ttl)
		assert.Empty(t, deleted)
	})

	t.Run("marks existing session updated", func(t *testing.T) {
		t.Parallel()

		var st state[string]
		st.restore("abc", "hello", time.Hour)
		st.setData("world", time.Minute)

		// The ID and TTL survive; only the data changes.
		id, _ := st.id()
		assert.Equal(t, "abc", id)
		ttl, _ := st.ttl()
		assert.Equal(t, time.Hour, ttl)

		pending, _ := st.takeForStorage()
		require.NotNil(t, pending)
		assert.Equal(t, "world", pending.data)
	})

	t.Run("last write wins", func(t *testing.T) {
		t.Parallel()

		var st state[string]
		st.setData("first", time.Hour)
		st.setData("second", time.Hour)
		st.setData("third", time.Hour)

		pending, _ := st.takeForStorage()
		require.NotNil(t, pending)
		assert.Equal(t, "third", pending.data)
	})
}

func TestState_SetTTL(t *testing.T) {
	t.Parallel()

	t.Run("updates ttl and triggers write-back", func(t *testing.T) {
		t.Parallel()

		var st state[string]
		st.restore("abc", "hello", time.Hour)
		st.setTTL(time.Minute)

		pending, _ := st.takeForStorage()
		require.NotNil(t, pending)
		assert.Equal(t, time.Minute, pending.ttl)
	})

	t.Run("no-op without active session", func(t *testing.T) {
		t.Parallel()

		var st state[string]
		st.setTTL(time.Minute)

		_, ok := st.ttl()
		assert.False(t, ok)
		pending, _ := st.takeForStorage()
		assert.Nil(t, pending)
	})
}

func TestState_TapMut(t *testing.T) {
	t.Parallel()

	t.Run("creates session when none active", func(t *testing.T) {
		t.Parallel()

		var st state[string]
		deleted := st.tapMut(func(data string, ok bool) (string, bool) {
			assert.False(t, ok)
			assert.Empty(t, data)
			return "created", true
		}, time.Hour)
		assert.False(t, deleted)
		assert.True(t, st.isNew())

		data, ok := st.get()
		require.True(t, ok)
		assert.Equal(t, "created", data)
	})

	t.Run("mutates existing session", func(t *testing.T) {
		t.Parallel()

		var st state[string]
		st.restore("abc", "hello", time.Hour)
		deleted := st.tapMut(func(data string, ok bool) (string, bool) {
			assert.True(t, ok)
			return data + " world", true
		}, time.Hour)
		assert.False(t, deleted)

		pending, _ := st.takeForStorage()
		require.NotNil(t, pending)
		assert.Equal(t, "hello world", pending.data)
	})

	t.Run("keep=false deletes the session", func(t *testing.T) {
		t.Parallel()

		var st state[string]
		st.restore("abc", "hello", time.Hour)
		deleted := st.tapMut(func(data string, ok bool) (string, bool) {
			return "", false
		}, time.Hour)
		assert.True(t, deleted)

		pending, deletedID := st.takeForStorage()
		assert.Nil(t, pending)
		assert.Equal(t, "abc", deletedID)
	})
}

func TestState_Remove(t *testing.T) {
	t.Parallel()

	t.Run("records deleted id", func(t *testing.T) {
		t.Parallel()

		var st state[string]
		st.restore("abc", "hello", time.Hour)
		st.remove()

		_, ok := st.get()
		assert.False(t, ok)
		assert.Equal(t, "abc", st.deletedID())
	})

	t.Run("first deleted id is sticky", func(t *testing.T) {
		t.Parallel()

		var st state[string]
		st.restore("first", "hello", time.Hour)
		st.remove()

		// A replacement session deleted later must not displace the original.
		st.setData("again", time.Hour)
		st.remove()

		assert.Equal(t, "first", st.deletedID())
	})

	t.Run("delete then recreate yields both delete and save", func(t *testing.T) {
		t.Parallel()

		var st state[string]
		st.restore("old", "hello", time.Hour)
		st.remove()
		st.setData("fresh", time.Hour)

		pending, deletedID := st.takeForStorage()
		require.NotNil(t, pending)
		assert.NotEqual(t, "old", pending.id)
		assert.Equal(t, "fresh", pending.data)
		assert.Equal(t, "old", deletedID)
	})

	t.Run("no-op without active session", func(t *testing.T) {
		t.Parallel()

		var st state[string]
		st.remove()
		assert.Empty(t, st.deletedID())
	})
}

func TestState_TakeForStorage(t *testing.T) {
	t.Parallel()

	t.Run("consumes state", func(t *testing.T) {
		t.Parallel()

		var st state[string]
		st.setData("hello", time.Hour)
		st.restore("abc", "x", time.Hour)
		st.remove()

		_, deletedID := st.takeForStorage()
		assert.Equal(t, "abc", deletedID)

		// A second take yields nothing.
		pending, deletedID := st.takeForStorage()
		assert.Nil(t, pending)
		assert.Empty(t, deletedID)
	})
}

type identPayload struct {
	UserID string
}

func (p identPayload) SessionIdentifier() (string, bool) {
	return p.UserID, p.UserID != ""
}

func TestState_Identifier(t *testing.T) {
	t.Parallel()

	var st state[identPayload]
	_, ok := st.identifier()
	assert.False(t, ok)

	st.setData(identPayload{}, time.Hour)
	_, ok = st.identifier()
	assert.False(t, ok)

	st.setData(identPayload{UserID: "user-1"}, time.Hour)
	ident, ok := st.identifier()
	require.True(t, ok)
	assert.Equal(t, "user-1", ident)
}
