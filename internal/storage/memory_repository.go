package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var newObjectID = primitive.NewObjectID

// MemoryRepository is a threadsafe in-memory Repository for tests and
// single-instance development servers. Search matches whole words of the
// schema's text fields, any term, case-insensitively.
type MemoryRepository[T any, P Document[T]] struct {
	mu     sync.RWMutex
	schema Schema
	docs   map[primitive.ObjectID]T
	order  []primitive.ObjectID
	now    func() time.Time
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository[T any, P Document[T]](schema Schema) *MemoryRepository[T, P] {
	return &MemoryRepository[T, P]{
		schema: schema,
		docs:   make(map[primitive.ObjectID]T),
		now:    time.Now,
	}
}

// SetClock overrides the time source used for stamping.
func (r *MemoryRepository[T, P]) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

// List implements Repository.
func (r *MemoryRepository[T, P]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	docs := make([]T, 0, len(r.order))
	for _, id := range r.order {
		doc := r.docs[id]
		if opts.CreatedBy != "" {
			if creator, _ := P(&doc).Field("created_by"); creator != opts.CreatedBy {
				continue
			}
		}
		docs = append(docs, doc)
	}
	r.mu.RUnlock()

	if opts.SortKey != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			a, _ := P(&docs[i]).Field(opts.SortKey)
			b, _ := P(&docs[j]).Field(opts.SortKey)
			if opts.Descending {
				return a > b
			}
			return a < b
		})
	}
	if opts.Limit > 0 && int64(len(docs)) > opts.Limit {
		docs = docs[:opts.Limit]
	}
	return docs, nil
}

// FindByID implements Repository.
func (r *MemoryRepository[T, P]) FindByID(ctx context.Context, id string) (*T, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

// Insert implements Repository.
func (r *MemoryRepository[T, P]) Insert(ctx context.Context, doc *T, createdBy string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	oid := newObjectID()
	P(doc).SetID(oid)
	P(doc).Stamp(createdBy, r.now())
	r.docs[oid] = *doc
	r.order = append(r.order, oid)
	return oid.Hex(), nil
}

// Replace implements Repository.
func (r *MemoryRepository[T, P]) Replace(ctx context.Context, id string, doc *T, createdBy string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[oid]; !ok {
		return ErrNotFound
	}
	P(doc).SetID(oid)
	P(doc).Stamp(createdBy, r.now())
	r.docs[oid] = *doc
	return nil
}

// Delete implements Repository.
func (r *MemoryRepository[T, P]) Delete(ctx context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[oid]; !ok {
		return ErrNotFound
	}
	delete(r.docs, oid)
	for i, existing := range r.order {
		if existing == oid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Search implements Repository.
func (r *MemoryRepository[T, P]) Search(ctx context.Context, query string) ([]T, error) {
	terms := words(query)
	if len(terms) == 0 {
		return []T{}, nil
	}
	all, err := r.List(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}
	matches := make([]T, 0)
	for i := range all {
		if r.matches(P(&all[i]), terms) {
			matches = append(matches, all[i])
		}
	}
	return matches, nil
}

func (r *MemoryRepository[T, P]) matches(doc P, terms []string) bool {
	for _, field := range r.schema.TextFields {
		value, ok := doc.Field(field)
		if !ok {
			continue
		}
		for _, word := range words(value) {
			for _, term := range terms {
				if word == term {
					return true
				}
			}
		}
	}
	return false
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
