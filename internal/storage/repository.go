package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is the constraint every stored type satisfies through its
// pointer. T is the value type kept in slices; P is *T.
type Document[T any] interface {
	*T
	GetID() primitive.ObjectID
	SetID(id primitive.ObjectID)
	// Stamp records the acting user and, for timestamped kinds, the time.
	Stamp(createdBy string, at time.Time)
	// Field returns the string form of a named bson field for in-memory
	// sorting and matching. Times use a fixed-width UTC layout.
	Field(name string) (string, bool)
}

// Schema describes one collection.
type Schema struct {
	Collection string
	// TextFields are covered by the collection's full-text index.
	TextFields []string
}

// ListOptions narrows and orders List results. The zero value lists every
// document in insertion order.
type ListOptions struct {
	SortKey    string
	Descending bool
	Limit      int64
	CreatedBy  string
}

// Repository is a collection accessor for one document kind.
type Repository[T any] interface {
	// List returns documents matching opts.
	// Parameters:
	//   ctx - cancellation and deadline
	//   opts - optional sort key/direction, limit and creator filter
	// Returns:
	//   []T - never nil
	//   error - ErrStoreUnavailable when the store cannot be reached
	List(ctx context.Context, opts ListOptions) ([]T, error)

	// FindByID returns the document with the given hex id, or ErrNotFound
	// for unknown and malformed ids.
	FindByID(ctx context.Context, id string) (*T, error)

	// Insert stores doc, stamping createdBy and the current time, and
	// returns the assigned id. doc.ID is updated in place.
	Insert(ctx context.Context, doc *T, createdBy string) (string, error)

	// Replace overwrites the whole document except its id. Fields absent
	// from doc are gone afterwards. Returns ErrNotFound when no document
	// has that id.
	Replace(ctx context.Context, id string, doc *T, createdBy string) error

	// Delete removes the document, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Search runs a full-text query over Schema.TextFields. A blank query
	// returns an empty result.
	Search(ctx context.Context, query string) ([]T, error)
}
