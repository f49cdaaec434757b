package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore maps each document collection to a MongoDB collection and
// uses the document id as _id.
type MongoStore struct {
	db   *mongo.Database
	feed *Feed
}

// ConnectMongo connects and pings the server.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db, feed: NewFeed()}
}

func (s *MongoStore) Feed() *Feed {
	return s.feed
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	if err := checkPath(collection, id); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Collection: collection, ID: id}

	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return snap, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	data, err := fromBSON(doc)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Exists = true
	snap.Data = data
	return snap, nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, data any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	doc, err := toBSON(data)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(collection).ReplaceOne(ctx,
		bson.M{"_id": id}, doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}
	s.feed.Publish(collection, id)
	return nil
}

func (s *MongoStore) Merge(ctx context.Context, collection, id string, data any) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	doc, err := toBSON(data)
	if err != nil {
		return err
	}
	if len(doc) == 0 {
		// $set rejects an empty document; still make sure the document exists
		_, err = s.db.Collection(collection).UpdateOne(ctx,
			bson.M{"_id": id}, bson.M{"$setOnInsert": bson.M{"_id": id}},
			options.Update().SetUpsert(true),
		)
	} else {
		_, err = s.db.Collection(collection).UpdateOne(ctx,
			bson.M{"_id": id}, bson.M{"$set": doc},
			options.Update().SetUpsert(true),
		)
	}
	if err != nil {
		return fmt.Errorf("failed to merge %s/%s: %w", collection, id, err)
	}
	s.feed.Publish(collection, id)
	return nil
}

func (s *MongoStore) Add(ctx context.Context, collection string, data any) (string, error) {
	doc, err := toBSON(data)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	doc["_id"] = id
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to add to %s: %w", collection, err)
	}
	s.feed.Publish(collection, id)
	return id, nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkPath(collection, id); err != nil {
		return err
	}
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	s.feed.Publish(collection, id)
	return nil
}

func (s *MongoStore) List(ctx context.Context, collection string) ([]Snapshot, error) {
	return s.Query(ctx, collection, Query{})
}

func (s *MongoStore) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	filter := bson.M{}
	if q.Field != "" {
		filter[q.Field] = q.Value
	}
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: 1}})
	} else {
		opts.SetSort(bson.D{{Key: "_id", Value: 1}})
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var out []Snapshot
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		id, _ := doc["_id"].(string)
		data, err := fromBSON(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{Collection: collection, ID: id, Exists: true, Data: data})
	}
	return out, cursor.Err()
}

// toBSON converts a JSON-encodable value into a BSON document via relaxed
// extended JSON, which keeps plain JSON numbers and strings as they are.
func toBSON(data any) (bson.M, error) {
	f, err := encodeFields(data)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.UnmarshalExtJSON(f.raw(), false, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert document: %w", err)
	}
	delete(doc, "_id")
	return doc, nil
}

func fromBSON(doc bson.M) (json.RawMessage, error) {
	delete(doc, "_id")
	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to convert document: %w", err)
	}
	return data, nil
}
