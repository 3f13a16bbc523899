package content

import (
	"context"
	"fmt"
	"time"

	"github.com/annel0/game-hub/internal/storage"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection schemas. Text fields back the search routes.
var (
	GameSchema   = storage.Schema{Collection: "games", TextFields: []string{"name", "genre", "description"}}
	GenreSchema  = storage.Schema{Collection: "genres", TextFields: []string{"name", "description"}}
	NewsSchema   = storage.Schema{Collection: "news", TextFields: []string{"title", "text", "game", "genre"}}
	ReviewSchema = storage.Schema{Collection: "reviews", TextFields: []string{"content", "game", "genre"}}
)

// Store bundles the four content repositories.
type Store struct {
	Games   storage.Repository[Game]
	Genres  storage.Repository[Genre]
	News    storage.Repository[News]
	Reviews storage.Repository[Review]
}

// NewMongoStore builds every repository on db, creating text indexes.
func NewMongoStore(ctx context.Context, db *mongo.Database, timeout time.Duration) (*Store, error) {
	games, err := storage.NewMongoRepository[Game, *Game](ctx, db, GameSchema, timeout)
	if err != nil {
		return nil, fmt.Errorf("games repository: %w", err)
	}
	genres, err := storage.NewMongoRepository[Genre, *Genre](ctx, db, GenreSchema, timeout)
	if err != nil {
		return nil, fmt.Errorf("genres repository: %w", err)
	}
	news, err := storage.NewMongoRepository[News, *News](ctx, db, NewsSchema, timeout)
	if err != nil {
		return nil, fmt.Errorf("news repository: %w", err)
	}
	reviews, err := storage.NewMongoRepository[Review, *Review](ctx, db, ReviewSchema, timeout)
	if err != nil {
		return nil, fmt.Errorf("reviews repository: %w", err)
	}
	return &Store{Games: games, Genres: genres, News: news, Reviews: reviews}, nil
}

// NewMemoryStore returns a Store backed by in-memory repositories.
func NewMemoryStore() *Store {
	return &Store{
		Games:   storage.NewMemoryRepository[Game, *Game](GameSchema),
		Genres:  storage.NewMemoryRepository[Genre, *Genre](GenreSchema),
		News:    storage.NewMemoryRepository[News, *News](NewsSchema),
		Reviews: storage.NewMemoryRepository[Review, *Review](ReviewSchema),
	}
}
