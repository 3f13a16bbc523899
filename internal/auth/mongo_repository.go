package auth

import (
	"context"
	"errors"
	"time"

	"github.com/annel0/game-hub/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UsersCollection is the default collection for accounts.
const UsersCollection = "users"

type userDocument struct {
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

// MongoUserRepo implements UserRepository on MongoDB. It shares the client
// of the content store and does not own it.
type MongoUserRepo struct {
	collection *mongo.Collection
	ctxTimeout time.Duration
}

// NewMongoUserRepo returns a repository on db.users and ensures the unique
// username index.
func NewMongoUserRepo(ctx context.Context, db *mongo.Database, timeout time.Duration) (*MongoUserRepo, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	repo := &MongoUserRepo{
		collection: db.Collection(UsersCollection),
		ctxTimeout: timeout,
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (m *MongoUserRepo) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()
	usernameIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_unique"),
	}
	_, err := m.collection.Indexes().CreateOne(ctx, usernameIdx)
	return storage.Classify(err)
}

// GetUserByUsername implements UserRepository.
func (m *MongoUserRepo) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	var doc userDocument
	err := m.collection.FindOne(ctx, bson.M{"username": normalize(username)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storage.Classify(err)
	}
	return &User{
		Username:     doc.Username,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// CreateUser implements UserRepository.
func (m *MongoUserRepo) CreateUser(ctx context.Context, username, passwordHash string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ctxTimeout)
	defer cancel()

	user := &User{
		Username:     normalize(username),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := m.collection.InsertOne(ctx, userDocument{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, storage.Classify(err)
	}
	return user, nil
}

// Close is a no-op; the client belongs to the caller.
func (m *MongoUserRepo) Close() error { return nil }
