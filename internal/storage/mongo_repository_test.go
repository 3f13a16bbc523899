package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

var notesSchema = Schema{Collection: "notes", TextFields: []string{"title", "body"}}

// newMockNotes builds a repository on mt's mock deployment. The index
// creation reply is queued first and its event cleared.
func newMockNotes(mt *mtest.T) *MongoRepository[note, *note] {
	mt.Helper()
	mt.AddMockResponses(mtest.CreateSuccessResponse())
	repo, err := NewMongoRepository[note, *note](context.Background(), mt.DB, notesSchema, time.Second)
	require.NoError(mt, err)

	started := mt.GetStartedEvent()
	require.NotNil(mt, started)
	assert.Equal(mt, "createIndexes", started.CommandName)
	mt.ClearEvents()
	return repo
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := fmt.Sprintf("%s.%s", mtest.TestDb, notesSchema.Collection)

	mt.Run("text index covers schema fields", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		_, err := NewMongoRepository[note, *note](context.Background(), mt.DB, notesSchema, time.Second)
		require.NoError(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		index := started.Command.Lookup("indexes").Array().Index(0).Value().Document()
		assert.Equal(mt, "notes_text", index.Lookup("name").StringValue())
		assert.Equal(mt, "text", index.Lookup("key", "title").StringValue())
		assert.Equal(mt, "text", index.Lookup("key", "body").StringValue())
	})

	mt.Run("insert assigns id and stamps", func(mt *mtest.T) {
		repo := newMockNotes(mt)
		at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
		repo.now = func() time.Time { return at }
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		doc := &note{Title: "Launch day"}
		id, err := repo.Insert(context.Background(), doc, "alice")
		require.NoError(mt, err)
		assert.Equal(mt, doc.ID.Hex(), id)
		assert.Equal(mt, "alice", doc.CreatedBy)
		assert.True(mt, at.Equal(doc.Date))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		sent := started.Command.Lookup("documents").Array().Index(0).Value().Document()
		assert.Equal(mt, doc.ID, sent.Lookup("_id").ObjectID())
		assert.Equal(mt, "alice", sent.Lookup("created_by").StringValue())
	})

	mt.Run("replace unknown id", func(mt *mtest.T) {
		repo := newMockNotes(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.Replace(context.Background(), primitive.NewObjectID().Hex(), &note{Title: "x"}, "alice")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("replace stamps and keeps id", func(mt *mtest.T) {
		repo := newMockNotes(mt)
		repo.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		oid := primitive.NewObjectID()
		doc := &note{Title: "Patched"}
		require.NoError(mt, repo.Replace(context.Background(), oid.Hex(), doc, "bob"))
		assert.Equal(mt, oid, doc.ID)
		assert.Equal(mt, "bob", doc.CreatedBy)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
		update := started.Command.Lookup("updates").Array().Index(0).Value().Document()
		assert.Equal(mt, oid, update.Lookup("q", "_id").ObjectID())
		assert.Equal(mt, "Patched", update.Lookup("u", "title").StringValue())
	})

	mt.Run("delete unknown id", func(mt *mtest.T) {
		repo := newMockNotes(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := repo.Delete(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("malformed id never reaches the server", func(mt *mtest.T) {
		repo := newMockNotes(mt)

		_, err := repo.FindByID(context.Background(), "not-an-id")
		assert.ErrorIs(mt, err, ErrNotFound)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("find by id", func(mt *mtest.T) {
		repo := newMockNotes(mt)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "title", Value: "Patch notes"},
			{Key: "created_by", Value: "alice"},
		}))

		doc, err := repo.FindByID(context.Background(), oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, "Patch notes", doc.Title)
		assert.Equal(mt, "alice", doc.CreatedBy)
	})

	mt.Run("find by id empty result", func(mt *mtest.T) {
		repo := newMockNotes(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("search sends text filter", func(mt *mtest.T) {
		repo := newMockNotes(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "title", Value: "Dark Souls"}},
		))

		docs, err := repo.Search(context.Background(), "  souls ")
		require.NoError(mt, err)
		require.Len(mt, docs, 1)
		assert.Equal(mt, "Dark Souls", docs[0].Title)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "find", started.CommandName)
		assert.Equal(mt, "souls", started.Command.Lookup("filter", "$text", "$search").StringValue())
	})

	mt.Run("blank search skips the server", func(mt *mtest.T) {
		repo := newMockNotes(mt)

		docs, err := repo.Search(context.Background(), "   ")
		require.NoError(mt, err)
		assert.Empty(mt, docs)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("list sorts limits and filters", func(mt *mtest.T) {
		repo := newMockNotes(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		docs, err := repo.List(context.Background(), ListOptions{SortKey: "date", Descending: true, Limit: 3, CreatedBy: "bob"})
		require.NoError(mt, err)
		assert.NotNil(mt, docs)
		assert.Empty(mt, docs)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "bob", started.Command.Lookup("filter", "created_by").StringValue())
		assert.Equal(mt, int64(-1), started.Command.Lookup("sort", "date").AsInt64())
		assert.Equal(mt, int64(3), started.Command.Lookup("limit").Int64())
	})

	mt.Run("command error passes through", func(mt *mtest.T) {
		repo := newMockNotes(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    27,
			Name:    "IndexNotFound",
			Message: "text index required for $text query",
		}))

		_, err := repo.Search(context.Background(), "souls")
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, ErrStoreUnavailable)
		var cmdErr mongo.CommandError
		assert.True(mt, errors.As(err, &cmdErr))
	})
}

func TestClassifyMongoErrors(t *testing.T) {
	assert.NoError(t, Classify(nil))
	assert.ErrorIs(t, Classify(mongo.ErrNoDocuments), ErrNotFound)
	assert.ErrorIs(t, Classify(fmt.Errorf("find: %w", mongo.ErrNoDocuments)), ErrNotFound)
	assert.ErrorIs(t, Classify(mongo.ErrClientDisconnected), ErrStoreUnavailable)
	assert.ErrorIs(t, Classify(context.DeadlineExceeded), ErrStoreUnavailable)

	network := mongo.CommandError{Code: 6, Name: "HostUnreachable", Labels: []string{"NetworkError"}}
	assert.ErrorIs(t, Classify(network), ErrStoreUnavailable)

	already := fmt.Errorf("%w: earlier", ErrStoreUnavailable)
	assert.Same(t, already, Classify(already))

	other := errors.New("boom")
	assert.Same(t, other, Classify(other))
}
