package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/annel0/game-hub/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockUsers(mt *mtest.T) *MongoUserRepo {
	mt.Helper()
	mt.AddMockResponses(mtest.CreateSuccessResponse())
	repo, err := NewMongoUserRepo(context.Background(), mt.DB, time.Second)
	require.NoError(mt, err)

	started := mt.GetStartedEvent()
	require.NotNil(mt, started)
	index := started.Command.Lookup("indexes").Array().Index(0).Value().Document()
	assert.Equal(mt, "username_unique", index.Lookup("name").StringValue())
	assert.True(mt, index.Lookup("unique").Boolean())
	mt.ClearEvents()
	return repo
}

func TestMongoUserRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := fmt.Sprintf("%s.%s", mtest.TestDb, UsersCollection)

	mt.Run("create lowercases username", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		user, err := repo.CreateUser(context.Background(), "Alice", "hash")
		require.NoError(mt, err)
		assert.Equal(mt, "alice", user.Username)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "alice", started.Command.Lookup("documents", "0", "username").StringValue())
		assert.Equal(mt, "hash", started.Command.Lookup("documents", "0", "password_hash").StringValue())
	})

	mt.Run("duplicate username", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: users index: username_unique",
		}))

		_, err := repo.CreateUser(context.Background(), "alice", "hash")
		assert.ErrorIs(mt, err, ErrUserExists)
	})

	mt.Run("lookup by username", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		created := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "username", Value: "alice"},
			{Key: "password_hash", Value: "hash"},
			{Key: "created_at", Value: created},
		}))

		user, err := repo.GetUserByUsername(context.Background(), "  ALICE ")
		require.NoError(mt, err)
		assert.Equal(mt, "alice", user.Username)
		assert.Equal(mt, "hash", user.PasswordHash)
		assert.True(mt, created.Equal(user.CreatedAt))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "alice", started.Command.Lookup("filter", "username").StringValue())
	})

	mt.Run("unknown username", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetUserByUsername(context.Background(), "nobody")
		assert.ErrorIs(mt, err, ErrUserNotFound)
	})

	mt.Run("network failure is unavailable", func(mt *mtest.T) {
		repo := newMockUsers(mt)
		netErr := mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    6,
			Name:    "HostUnreachable",
			Message: "connection reset",
			Labels:  []string{"NetworkError"},
		})
		// a retryable read is attempted twice
		mt.AddMockResponses(netErr, netErr)

		_, err := repo.GetUserByUsername(context.Background(), "alice")
		assert.ErrorIs(mt, err, storage.ErrStoreUnavailable)
	})
}
