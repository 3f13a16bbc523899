package storage

import (
	"context"
	"strings"
	"time"

	"github.com/annel0/game-hub/internal/logging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, Classify(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, Classify(err)
	}
	return client, nil
}

// MongoRepository implements Repository on a MongoDB collection.
type MongoRepository[T any, P Document[T]] struct {
	collection *mongo.Collection
	schema     Schema
	ctxTimeout time.Duration
	now        func() time.Time
}

// NewMongoRepository binds the schema's collection and ensures its text
// index exists.
func NewMongoRepository[T any, P Document[T]](ctx context.Context, db *mongo.Database, schema Schema, timeout time.Duration) (*MongoRepository[T, P], error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	repo := &MongoRepository[T, P]{
		collection: db.Collection(schema.Collection),
		schema:     schema,
		ctxTimeout: timeout,
		now:        time.Now,
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (m *MongoRepository[T, P]) ensureIndexes(ctx context.Context) error {
	if len(m.schema.TextFields) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	keys := bson.D{}
	for _, field := range m.schema.TextFields {
		keys = append(keys, bson.E{Key: field, Value: "text"})
	}
	textIdx := mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetName(m.schema.Collection + "_text"),
	}
	_, err := m.collection.Indexes().CreateOne(ctx, textIdx)
	return Classify(err)
}

// List implements Repository.
func (m *MongoRepository[T, P]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	filter := bson.M{}
	if opts.CreatedBy != "" {
		filter["created_by"] = opts.CreatedBy
	}
	findOpts := options.Find()
	if opts.SortKey != "" {
		direction := 1
		if opts.Descending {
			direction = -1
		}
		findOpts.SetSort(bson.D{{Key: opts.SortKey, Value: direction}})
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	return m.find(ctx, filter, findOpts)
}

// FindByID implements Repository.
func (m *MongoRepository[T, P]) FindByID(ctx context.Context, id string) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	var doc T
	if err := m.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, Classify(err)
	}
	return &doc, nil
}

// Insert implements Repository.
func (m *MongoRepository[T, P]) Insert(ctx context.Context, doc *T, createdBy string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	P(doc).SetID(newObjectID())
	P(doc).Stamp(createdBy, m.now())
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return "", Classify(err)
	}
	id := P(doc).GetID().Hex()
	logging.GetStorageLogger().Debug("inserted %s/%s by %s", m.schema.Collection, id, createdBy)
	return id, nil
}

// Replace implements Repository.
func (m *MongoRepository[T, P]) Replace(ctx context.Context, id string, doc *T, createdBy string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	P(doc).SetID(oid)
	P(doc).Stamp(createdBy, m.now())
	res, err := m.collection.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return Classify(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements Repository.
func (m *MongoRepository[T, P]) Delete(ctx context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return Classify(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Search implements Repository.
func (m *MongoRepository[T, P]) Search(ctx context.Context, query string) ([]T, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []T{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	return m.find(ctx, bson.M{"$text": bson.M{"$search": query}}, options.Find())
}

func (m *MongoRepository[T, P]) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, Classify(err)
	}
	defer cursor.Close(ctx)

	docs := make([]T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, Classify(err)
	}
	return docs, nil
}
