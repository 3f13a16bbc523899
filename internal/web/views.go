package web

import (
	"time"

	"github.com/annel0/game-hub/internal/content"
)

// Page is the layout data every view carries.
type Page struct {
	// User is the logged-in username, empty for anonymous visitors.
	User    string
	Flashes []string
}

type IndexView struct {
	Page
	News  []content.News
	Games []content.Game
}

type ProfileView struct {
	Page
	Username string
	Joined   time.Time
	Reviews  []content.Review
}

type GamesView struct {
	Page
	Query string
	Games []content.Game
}

type GenresView struct {
	Page
	Query  string
	Genres []content.Genre
}

type NewsView struct {
	Page
	Query string
	News  []content.News
}

type ReviewsView struct {
	Page
	Query   string
	Reviews []content.Review
}

// GameFormView backs both add and edit; a zero Game.ID means add.
type GameFormView struct {
	Page
	Action     string
	Game       content.Game
	GenreNames []string
}

type GenreFormView struct {
	Page
	Action string
	Genre  content.Genre
}

type NewsFormView struct {
	Page
	Action     string
	News       content.News
	GameNames  []string
	GenreNames []string
}

type ReviewFormView struct {
	Page
	Action     string
	Review     content.Review
	GameNames  []string
	GenreNames []string
}

type ErrorView struct {
	Page
	Status  int
	Message string
}
