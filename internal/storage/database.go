package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/portalwatch/internal/types"
)

// MongoStorage stores posts in a MongoDB collection with a unique index on
// content_hash.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// mongoPost is the collection document layout.
type mongoPost struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	types.Post `bson:",inline"`
}

// NewMongoStorage connects to MongoDB and ensures the collection indexes.
func NewMongoStorage(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "content_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "sent", Value: 1}, {Key: "created_at", Value: 1}},
		},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb indexes: %w", err)
	}

	return &MongoStorage{
		client:     client,
		collection: coll,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) Exists(ctx context.Context, contentHash string) (bool, error) {
	n, err := s.collection.CountDocuments(ctx,
		bson.M{"content_hash": contentHash},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, &types.StorageError{Backend: s.Name(), Err: err}
	}
	return n > 0, nil
}

func (s *MongoStorage) Save(ctx context.Context, post *types.Post) (string, error) {
	doc := mongoPost{Post: *post}
	doc.Sent = false
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	res, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicateHash
		}
		return "", &types.StorageError{Backend: s.Name(), Err: err}
	}

	id := ""
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		id = oid.Hex()
	}
	s.logger.Debug("post stored in mongodb", "id", id)
	return id, nil
}

func (s *MongoStorage) Stats(ctx context.Context) (types.StoreStats, error) {
	var st types.StoreStats
	total, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return st, &types.StorageError{Backend: s.Name(), Err: err}
	}
	pending, err := s.collection.CountDocuments(ctx, bson.M{"sent": false})
	if err != nil {
		return st, &types.StorageError{Backend: s.Name(), Err: err}
	}
	st.TotalPosts = total
	st.PendingToSend = pending
	return st, nil
}

func (s *MongoStorage) Unsent(ctx context.Context, limit int) ([]*types.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.collection.Find(ctx, bson.M{"sent": false}, opts)
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	defer cur.Close(ctx)

	var out []*types.Post
	for cur.Next(ctx) {
		var doc mongoPost
		if err := cur.Decode(&doc); err != nil {
			return nil, &types.StorageError{Backend: s.Name(), Err: err}
		}
		p := doc.Post
		p.ID = doc.ID.Hex()
		out = append(out, &p)
	}
	return out, cur.Err()
}

func (s *MongoStorage) MarkSent(ctx context.Context, ids ...string) error {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return fmt.Errorf("invalid post id %q: %w", id, err)
		}
		oids = append(oids, oid)
	}
	if len(oids) == 0 {
		return nil
	}

	_, err := s.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": oids}},
		bson.M{"$set": bson.M{"sent": true}},
	)
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	return nil
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
