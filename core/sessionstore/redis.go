package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/flexsession/core/session"
)

// RedisKind selects the Redis value type a codec produces.
type RedisKind int

const (
	// RedisString stores the payload as a plain Redis string.
	RedisString RedisKind = iota
	// RedisBytes stores the payload as a binary-safe Redis string.
	RedisBytes
	// RedisHash stores the payload as a Redis hash.
	RedisHash
)

// RedisValue is the wire form of a session payload in Redis. The field
// matching the codec's Kind is the one that carries data.
type RedisValue struct {
	Kind  RedisKind
	Str   string
	Bytes []byte
	Hash  map[string]string
}

// RedisCodec converts session payloads to and from their Redis representation.
// Kind must be constant for a given codec: it decides which commands the store
// issues before any value exists.
type RedisCodec[T any] interface {
	Kind() RedisKind
	Encode(data T) (RedisValue, error)
	Decode(value RedisValue) (T, error)
}

// JSONCodec stores any payload type as a JSON string. This is the codec to
// reach for unless the payload is already a string-like or map type.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Kind() RedisKind { return RedisString }

func (JSONCodec[T]) Encode(data T) (RedisValue, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return RedisValue{}, errors.Join(session.ErrSerialization, err)
	}
	return RedisValue{Kind: RedisString, Str: string(b)}, nil
}

func (JSONCodec[T]) Decode(value RedisValue) (T, error) {
	var data T
	if err := json.Unmarshal([]byte(value.Str), &data); err != nil {
		return data, errors.Join(session.ErrInvalidData, err)
	}
	return data, nil
}

// BytesCodec stores raw byte payloads without any encoding.
type BytesCodec struct{}

func (BytesCodec) Kind() RedisKind { return RedisBytes }

func (BytesCodec) Encode(data []byte) (RedisValue, error) {
	return RedisValue{Kind: RedisBytes, Bytes: data}, nil
}

func (BytesCodec) Decode(value RedisValue) ([]byte, error) {
	if value.Bytes != nil {
		return value.Bytes, nil
	}
	return []byte(value.Str), nil
}

// HashCodec stores map payloads as native Redis hashes, so individual fields
// stay inspectable with HGET. Empty maps cannot be represented as a Redis
// hash and fail to encode.
type HashCodec struct{}

func (HashCodec) Kind() RedisKind { return RedisHash }

func (HashCodec) Encode(data map[string]string) (RedisValue, error) {
	if len(data) == 0 {
		return RedisValue{}, fmt.Errorf("%w: empty map cannot be stored as a redis hash", session.ErrSerialization)
	}
	return RedisValue{Kind: RedisHash, Hash: data}, nil
}

func (HashCodec) Decode(value RedisValue) (map[string]string, error) {
	return value.Hash, nil
}

// RedisStoreConfig holds key layout and index settings for RedisStore.
type RedisStoreConfig struct {
	// KeyPrefix is prepended to session IDs to form the primary keys.
	KeyPrefix string `env:"SESSION_REDIS_KEY_PREFIX" envDefault:"sess:"`
	// IndexPrefix is prepended to identifiers to form the index set keys.
	IndexPrefix string `env:"SESSION_REDIS_INDEX_PREFIX" envDefault:"sess:user:"`
	// IndexTTL is the expiry of each index set, refreshed on every save. Keep
	// it at or above the longest session TTL, otherwise indexed lookups may
	// miss live sessions.
	IndexTTL time.Duration `env:"SESSION_REDIS_INDEX_TTL" envDefault:"336h"` // 14 days
}

// DefaultRedisStoreConfig returns a RedisStoreConfig with default key layout.
func DefaultRedisStoreConfig() RedisStoreConfig {
	return RedisStoreConfig{
		KeyPrefix:   "sess:",
		IndexPrefix: "sess:user:",
		IndexTTL:    14 * 24 * time.Hour,
	}
}

// RedisStore persists sessions in Redis and maintains a set-based identifier
// index. It implements session.IndexedStore. Expiry relies on native Redis
// TTLs, so expired sessions surface as session.ErrNotFound.
type RedisStore[T any] struct {
	client *redis.Client
	codec  RedisCodec[T]
	config RedisStoreConfig
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore[T any](client *redis.Client, codec RedisCodec[T], cfg RedisStoreConfig) (*RedisStore[T], error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if codec == nil {
		return nil, errors.New("redis codec is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "sess:"
	}
	if cfg.IndexPrefix == "" {
		cfg.IndexPrefix = "sess:user:"
	}
	if cfg.IndexTTL <= 0 {
		cfg.IndexTTL = 14 * 24 * time.Hour
	}

	return &RedisStore[T]{
		client: client,
		codec:  codec,
		config: cfg,
	}, nil
}

func (s *RedisStore[T]) key(id string) string {
	return s.config.KeyPrefix + id
}

func (s *RedisStore[T]) indexKey(identifier string) string {
	return s.config.IndexPrefix + identifier
}

// Load implements session.Store. The read, the TTL query and the optional
// rolling refresh run in a single pipeline.
func (s *RedisStore[T]) Load(ctx context.Context, id string, rollingTTL time.Duration, _ *session.CookieJar) (T, time.Duration, error) {
	var zero T
	key := s.key(id)

	var (
		strCmd  *redis.StringCmd
		hashCmd *redis.MapStringStringCmd
		ttlCmd  *redis.DurationCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		if s.codec.Kind() == RedisHash {
			hashCmd = pipe.HGetAll(ctx, key)
		} else {
			strCmd = pipe.Get(ctx, key)
		}
		ttlCmd = pipe.TTL(ctx, key)
		if rollingTTL > 0 {
			pipe.Expire(ctx, key, rollingTTL)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, 0, session.ErrNotFound
		}
		return zero, 0, errors.Join(session.ErrBackend, err)
	}

	value := RedisValue{Kind: s.codec.Kind()}
	if hashCmd != nil {
		hash := hashCmd.Val()
		if len(hash) == 0 {
			return zero, 0, session.ErrNotFound
		}
		value.Hash = hash
	} else {
		value.Str = strCmd.Val()
		value.Bytes = []byte(value.Str)
	}

	data, err := s.codec.Decode(value)
	if err != nil {
		return zero, 0, err
	}

	ttl := ttlCmd.Val()
	if rollingTTL > 0 {
		ttl = rollingTTL
	} else if ttl < 0 {
		ttl = 0
	}
	return data, ttl, nil
}

// Save implements session.Store. The payload write and the index update run
// in one transactional pipeline.
func (s *RedisStore[T]) Save(ctx context.Context, id string, data T, ttl time.Duration) error {
	value, err := s.codec.Encode(data)
	if err != nil {
		return err
	}

	key := s.key(id)
	identifier, hasIdent := session.IdentifierOf(data)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		switch value.Kind {
		case RedisHash:
			// Full overwrite: HSET alone would merge with stale fields.
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, value.Hash)
			pipe.Expire(ctx, key, ttl)
		case RedisBytes:
			pipe.Set(ctx, key, value.Bytes, ttl)
		default:
			pipe.Set(ctx, key, value.Str, ttl)
		}
		if hasIdent {
			idxKey := s.indexKey(identifier)
			pipe.SAdd(ctx, idxKey, id)
			pipe.Expire(ctx, idxKey, s.config.IndexTTL)
		}
		return nil
	})
	if err != nil {
		return errors.Join(session.ErrBackend, err)
	}
	return nil
}

// Delete implements session.Store. The payload is read first so its index
// entry can be unlinked alongside the primary key.
func (s *RedisStore[T]) Delete(ctx context.Context, id string, _ *session.CookieJar) error {
	key := s.key(id)

	identifier, hasIdent := "", false
	if data, _, err := s.Load(ctx, id, 0, nil); err == nil {
		identifier, hasIdent = session.IdentifierOf(data)
	} else if !errors.Is(err, session.ErrNotFound) && !errors.Is(err, session.ErrInvalidData) {
		return err
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if hasIdent {
			pipe.SRem(ctx, s.indexKey(identifier), id)
		}
		return nil
	})
	if err != nil {
		return errors.Join(session.ErrBackend, err)
	}
	return nil
}

// SessionsByIdentifier implements session.IndexedStore. Index members whose
// sessions have expired are pruned from the set as a side effect.
func (s *RedisStore[T]) SessionsByIdentifier(ctx context.Context, identifier string) ([]session.IndexedSession[T], error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(identifier)).Result()
	if err != nil {
		return nil, errors.Join(session.ErrBackend, err)
	}
	if len(ids) == 0 {
		return []session.IndexedSession[T]{}, nil
	}

	strCmds := make([]*redis.StringCmd, len(ids))
	hashCmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			if s.codec.Kind() == RedisHash {
				hashCmds[i] = pipe.HGetAll(ctx, s.key(id))
			} else {
				strCmds[i] = pipe.Get(ctx, s.key(id))
			}
		}
		return nil
	})
	// redis.Nil from individual GETs marks stale index members, not a failure.
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Join(session.ErrBackend, err)
	}

	sessions := make([]session.IndexedSession[T], 0, len(ids))
	var stale []any
	for i, id := range ids {
		value := RedisValue{Kind: s.codec.Kind()}
		if s.codec.Kind() == RedisHash {
			hash := hashCmds[i].Val()
			if len(hash) == 0 {
				stale = append(stale, id)
				continue
			}
			value.Hash = hash
		} else {
			if errors.Is(strCmds[i].Err(), redis.Nil) {
				stale = append(stale, id)
				continue
			}
			value.Str = strCmds[i].Val()
			value.Bytes = []byte(value.Str)
		}

		data, err := s.codec.Decode(value)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session.IndexedSession[T]{ID: id, Data: data})
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, s.indexKey(identifier), stale...).Err(); err != nil {
			return nil, errors.Join(session.ErrBackend, err)
		}
	}
	return sessions, nil
}

// SessionIDsByIdentifier implements session.IndexedStore. Stale index members
// are pruned as a side effect.
func (s *RedisStore[T]) SessionIDsByIdentifier(ctx context.Context, identifier string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(identifier)).Result()
	if err != nil {
		return nil, errors.Join(session.ErrBackend, err)
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	existsCmds := make([]*redis.IntCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			existsCmds[i] = pipe.Exists(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Join(session.ErrBackend, err)
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for i, id := range ids {
		if existsCmds[i].Val() > 0 {
			live = append(live, id)
		} else {
			stale = append(stale, id)
		}
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, s.indexKey(identifier), stale...).Err(); err != nil {
			return nil, errors.Join(session.ErrBackend, err)
		}
	}
	return live, nil
}

// InvalidateByIdentifier implements session.IndexedStore. The primary keys
// and the index entries are removed in one transactional pipeline; the count
// reflects primary keys that actually existed.
func (s *RedisStore[T]) InvalidateByIdentifier(ctx context.Context, identifier string, excludeID string) (int64, error) {
	idxKey := s.indexKey(identifier)

	ids, err := s.client.SMembers(ctx, idxKey).Result()
	if err != nil {
		return 0, errors.Join(session.ErrBackend, err)
	}

	keys := make([]string, 0, len(ids))
	members := make([]any, 0, len(ids))
	for _, id := range ids {
		if id == excludeID {
			continue
		}
		keys = append(keys, s.key(id))
		members = append(members, id)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	var delCmd *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		delCmd = pipe.Del(ctx, keys...)
		if excludeID == "" {
			pipe.Del(ctx, idxKey)
		} else {
			pipe.SRem(ctx, idxKey, members...)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Join(session.ErrBackend, err)
	}
	return delCmd.Val(), nil
}
