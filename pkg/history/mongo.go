package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/diagramsync/pkg/errors"
)

// Mongo defaults.
const (
	DefaultMongoDatabase   = "diagramsync"
	DefaultMongoCollection = "history"
)

// MongoStore keeps entries in a MongoDB collection. The diagram state is
// stored as its JSON encoding so elements keep their exact wire form.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDoc struct {
	ID        string    `bson:"_id"`
	Timestamp time.Time `bson:"timestamp"`
	Type      string    `bson:"type"`
	Preview   string    `bson:"preview"`
	State     string    `bson:"state"`
}

// NewMongoStore connects to uri and uses database.collection. Empty names
// fall back to the defaults.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create history index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

func (s *MongoStore) Save(ctx context.Context, e Entry) error {
	doc, err := toDoc(e)
	if err != nil {
		return err
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": e.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistory, err, "save history entry")
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Entry, error) {
	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistory, err, "lookup history entry")
	}
	return fromDoc(doc)
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistory, err, "list history")
	}
	var docs []mongoDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistory, err, "read history")
	}

	out := make([]Entry, 0, len(docs))
	for _, d := range docs {
		e, err := fromDoc(d)
		if err != nil {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(errors.ErrCodeHistory, err, "delete history entry")
	}
	if res.DeletedCount == 0 {
		return notFound(id)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func toDoc(e Entry) (mongoDoc, error) {
	st, err := json.Marshal(e.State)
	if err != nil {
		return mongoDoc{}, errors.Wrap(errors.ErrCodeHistory, err, "marshal history state")
	}
	return mongoDoc{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Type:      string(e.Type),
		Preview:   e.Preview,
		State:     string(st),
	}, nil
}

func fromDoc(d mongoDoc) (*Entry, error) {
	e := &Entry{
		ID:        d.ID,
		Timestamp: d.Timestamp.UTC(),
		Type:      Kind(d.Type),
		Preview:   d.Preview,
	}
	if err := json.Unmarshal([]byte(d.State), &e.State); err != nil {
		return nil, errors.Wrap(errors.ErrCodeHistory, err, "parse history state %s", d.ID)
	}
	return e, nil
}

var _ Store = (*MongoStore)(nil)
