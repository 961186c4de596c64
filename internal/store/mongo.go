package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps one document per key: {_id: key, value: <document>,
// updated_at}. Values are converted from JSON through relaxed extended JSON
// so they stay queryable from the mongo shell.
type MongoStore struct {
	db         *mongo.Database
	collection *mongo.Collection
}

type kvDocument struct {
	Key       string        `bson:"_id"`
	Value     bson.RawValue `bson:"value"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	if collection == "" {
		collection = "kv"
	}
	return &MongoStore{
		db:         db,
		collection: db.Collection(collection),
	}
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	var doc kvDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("cannot get %s: %w", key, err)
	}
	return toJSON(doc.Value)
}

func (s *MongoStore) Set(ctx context.Context, key string, value []byte) error {
	doc, err := toDocument(key, value)
	if err != nil {
		return err
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("cannot set %s: %w", key, err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, key string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("cannot delete %s: %w", key, err)
	}
	return nil
}

func (s *MongoStore) Scan(ctx context.Context, prefix string) ([]Entry, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", prefix, err)
	}
	defer cursor.Close(ctx)

	var docs []kvDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode scan %s: %w", prefix, err)
	}

	out := make([]Entry, 0, len(docs))
	for _, d := range docs {
		raw, err := toJSON(d.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: d.Key, Value: raw})
	}
	return out, nil
}

func (s *MongoStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	cursor, err := s.collection.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return nil, fmt.Errorf("cannot mget: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []kvDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode mget: %w", err)
	}

	byKey := make(map[string][]byte, len(docs))
	for _, d := range docs {
		raw, err := toJSON(d.Value)
		if err != nil {
			return nil, err
		}
		byKey[d.Key] = raw
	}
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out, nil
}

func (s *MongoStore) MSet(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(entries))
	for _, e := range entries {
		doc, err := toDocument(e.Key, e.Value)
		if err != nil {
			return err
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": e.Key}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	if _, err := s.collection.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("cannot mset: %w", err)
	}
	return nil
}

func (s *MongoStore) MDelete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}}); err != nil {
		return fmt.Errorf("cannot mdelete: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Drop removes the whole key/value collection.
func (s *MongoStore) Drop(ctx context.Context) error {
	return s.collection.Drop(ctx)
}

func toDocument(key string, value []byte) (bson.D, error) {
	wrapped := append(append([]byte(`{"value":`), value...), '}')

	var parsed bson.D
	if err := bson.UnmarshalExtJSON(wrapped, false, &parsed); err != nil {
		return nil, fmt.Errorf("cannot convert %s to bson: %w", key, err)
	}

	var v any
	if len(parsed) > 0 {
		v = parsed[0].Value
	}

	return bson.D{
		{Key: "_id", Value: key},
		{Key: "value", Value: v},
		{Key: "updated_at", Value: time.Now().UTC()},
	}, nil
}

func toJSON(value bson.RawValue) ([]byte, error) {
	wrapped, err := bson.MarshalExtJSON(bson.D{{Key: "value", Value: value}}, false, false)
	if err != nil {
		return nil, fmt.Errorf("cannot convert value to json: %w", err)
	}

	var out struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(wrapped, &out); err != nil {
		return nil, fmt.Errorf("cannot unwrap value: %w", err)
	}
	return out.Value, nil
}
