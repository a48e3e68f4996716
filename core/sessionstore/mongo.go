package sessionstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/flexsession/core/session"
)

// MongoStoreConfig holds collection settings for MongoStore.
type MongoStoreConfig struct {
	// Collection is the sessions collection name.
	Collection string `env:"SESSION_MONGO_COLLECTION" envDefault:"sessions"`
}

// DefaultMongoStoreConfig returns a MongoStoreConfig with the default
// collection name.
func DefaultMongoStoreConfig() MongoStoreConfig {
	return MongoStoreConfig{Collection: "sessions"}
}

type mongoSession[T any] struct {
	ID         string    `bson:"_id"`
	Data       T         `bson:"data"`
	Identifier *string   `bson:"identifier,omitempty"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

// MongoStore persists sessions in a MongoDB collection and implements
// session.IndexedStore. Setup provisions a TTL index on the expiry field, so
// MongoDB reaps expired documents itself; reads still check expiry because
// the TTL monitor only runs periodically.
type MongoStore[T any] struct {
	coll *mongo.Collection
}

// NewMongoStore creates a MongoDB-backed session store. Call Setup once to
// provision the TTL and identifier indexes.
func NewMongoStore[T any](db *mongo.Database, cfg MongoStoreConfig) (*MongoStore[T], error) {
	if db == nil {
		return nil, errors.New("mongo database is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "sessions"
	}
	return &MongoStore[T]{coll: db.Collection(cfg.Collection)}, nil
}

// Load implements session.Store. Rolling loads refresh the expiry atomically
// via findAndModify.
func (s *MongoStore[T]) Load(ctx context.Context, id string, rollingTTL time.Duration, _ *session.CookieJar) (T, time.Duration, error) {
	var zero T
	var doc mongoSession[T]
	now := time.Now()

	if rollingTTL > 0 {
		filter := bson.D{
			{Key: "_id", Value: id},
			{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: now}}},
		}
		update := bson.D{{Key: "$set", Value: bson.D{{Key: "expires_at", Value: now.Add(rollingTTL)}}}}
		err := s.coll.FindOneAndUpdate(ctx, filter, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
		if err == nil {
			return doc.Data, rollingTTL, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return zero, 0, errors.Join(session.ErrBackend, err)
		}
		// No live document: fall through to tell missing apart from expired.
	}

	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return zero, 0, session.ErrNotFound
	}
	if err != nil {
		return zero, 0, errors.Join(session.ErrBackend, err)
	}
	if !doc.ExpiresAt.After(now) {
		return zero, 0, session.ErrExpired
	}
	return doc.Data, doc.ExpiresAt.Sub(now), nil
}

// Save implements session.Store.
func (s *MongoStore[T]) Save(ctx context.Context, id string, data T, ttl time.Duration) error {
	doc := mongoSession[T]{
		ID:        id,
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	}
	if ident, ok := session.IdentifierOf(data); ok {
		doc.Identifier = &ident
	}

	_, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Join(session.ErrBackend, err)
	}
	return nil
}

// Delete implements session.Store.
func (s *MongoStore[T]) Delete(ctx context.Context, id string, _ *session.CookieJar) error {
	if _, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return errors.Join(session.ErrBackend, err)
	}
	return nil
}

// SessionsByIdentifier implements session.IndexedStore.
func (s *MongoStore[T]) SessionsByIdentifier(ctx context.Context, identifier string) ([]session.IndexedSession[T], error) {
	cursor, err := s.coll.Find(ctx, s.liveFilter(identifier, ""))
	if err != nil {
		return nil, errors.Join(session.ErrBackend, err)
	}
	defer cursor.Close(ctx)

	sessions := make([]session.IndexedSession[T], 0)
	for cursor.Next(ctx) {
		var doc mongoSession[T]
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Join(session.ErrInvalidData, err)
		}
		sessions = append(sessions, session.IndexedSession[T]{ID: doc.ID, Data: doc.Data})
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Join(session.ErrBackend, err)
	}
	return sessions, nil
}

// SessionIDsByIdentifier implements session.IndexedStore.
func (s *MongoStore[T]) SessionIDsByIdentifier(ctx context.Context, identifier string) ([]string, error) {
	cursor, err := s.coll.Find(ctx, s.liveFilter(identifier, ""),
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Join(session.ErrBackend, err)
	}
	defer cursor.Close(ctx)

	ids := make([]string, 0)
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Join(session.ErrInvalidData, err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Join(session.ErrBackend, err)
	}
	return ids, nil
}

// InvalidateByIdentifier implements session.IndexedStore.
func (s *MongoStore[T]) InvalidateByIdentifier(ctx context.Context, identifier string, excludeID string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, s.liveFilter(identifier, excludeID))
	if err != nil {
		return 0, errors.Join(session.ErrBackend, err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore[T]) liveFilter(identifier, excludeID string) bson.D {
	filter := bson.D{
		{Key: "identifier", Value: identifier},
		{Key: "expires_at", Value: bson.D{{Key: "$gt", Value: time.Now()}}},
	}
	if excludeID != "" {
		filter = append(filter, bson.E{Key: "_id", Value: bson.D{{Key: "$ne", Value: excludeID}}})
	}
	return filter
}

// Setup provisions the TTL and identifier indexes. It implements
// session.Initializer and is safe to call repeatedly.
func (s *MongoStore[T]) Setup(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "identifier", Value: 1}},
		},
	})
	if err != nil {
		return errors.Join(session.ErrBackend, err)
	}
	return nil
}
