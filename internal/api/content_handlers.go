package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/annel0/game-hub/internal/content"
	"github.com/annel0/game-hub/internal/eventbus"
	"github.com/annel0/game-hub/internal/storage"
	"github.com/annel0/game-hub/internal/web"
	"github.com/gin-gonic/gin"
)

// Document kinds as they appear in events and flash messages.
const (
	kindGame   = "game"
	kindGenre  = "genre"
	kindNews   = "news"
	kindReview = "review"
)

var (
	newestFirst = storage.ListOptions{SortKey: "date", Descending: true}
	byName      = storage.ListOptions{SortKey: "name"}
)

var flashNouns = map[string]string{
	kindGame:   "Game",
	kindGenre:  "Genre",
	kindNews:   "News",
	kindReview: "Review",
}

var flashVerbs = map[string]string{
	eventbus.ActionCreated: "Added",
	eventbus.ActionUpdated: "Updated",
	eventbus.ActionDeleted: "Deleted",
}

// mutated publishes the change and redirects to the listing with the
// success flash.
func (s *Server) mutated(c *gin.Context, kind, action, id, listing string) {
	actor := currentUser(c)
	s.log.Info("%s %s %s by %s", kind, id, action, actor)
	if s.events != nil {
		ev := eventbus.ContentEvent{Kind: kind, Action: action, DocumentID: id, Actor: actor}
		if err := eventbus.PublishContent(c.Request.Context(), s.events, s.service, ev); err != nil {
			s.log.Warn("publish %s %s event: %v", kind, action, err)
		}
	}
	s.redirect(c, listing, flashNouns[kind]+" Successfully "+flashVerbs[action])
}

func (s *Server) handleIndex(c *gin.Context) {
	ctx := c.Request.Context()
	latest := newestFirst
	latest.Limit = 1
	news, err := s.content.News.List(ctx, latest)
	if err != nil {
		s.fail(c, err)
		return
	}
	latest.Limit = 3
	games, err := s.content.Games.List(ctx, latest)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageIndex, web.IndexView{Page: s.page(c), News: news, Games: games})
}

// searchQuery reads the query from the form body or the query string.
func searchQuery(c *gin.Context) (string, error) {
	var form searchForm
	if err := bindForm(c, &form, searchMessages); err != nil {
		return "", err
	}
	return strings.TrimSpace(form.Query), nil
}

func (s *Server) genreNames(ctx context.Context) ([]string, error) {
	genres, err := s.content.Genres.List(ctx, byName)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return names, nil
}

func (s *Server) gameNames(ctx context.Context) ([]string, error) {
	games, err := s.content.Games.List(ctx, byName)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(games))
	for _, g := range games {
		names = append(names, g.Name)
	}
	return names, nil
}

// Games

func (s *Server) handleGames(c *gin.Context) {
	games, err := s.content.Games.List(c.Request.Context(), byName)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageGames, web.GamesView{Page: s.page(c), Games: games})
}

func (s *Server) handleSearchGames(c *gin.Context) {
	query, err := searchQuery(c)
	if err != nil {
		s.formError(c, "/games", err)
		return
	}
	games, err := s.content.Games.Search(c.Request.Context(), query)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageGames, web.GamesView{Page: s.page(c), Query: query, Games: games})
}

func (s *Server) renderGameForm(c *gin.Context, action string, game content.Game) {
	genres, err := s.genreNames(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageGameForm, web.GameFormView{
		Page:       s.page(c),
		Action:     action,
		Game:       game,
		GenreNames: genres,
	})
}

func (s *Server) handleAddGameForm(c *gin.Context) {
	s.renderGameForm(c, "/add_game", content.Game{})
}

func (s *Server) handleAddGame(c *gin.Context) {
	var form gameForm
	if err := bindForm(c, &form, gameMessages); err != nil {
		s.formError(c, "/add_game", err)
		return
	}
	id, err := s.content.Games.Insert(c.Request.Context(), form.game(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.mutated(c, kindGame, eventbus.ActionCreated, id, "/games")
}

func (s *Server) handleEditGameForm(c *gin.Context) {
	id := c.Param("id")
	game, err := s.content.Games.FindByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.renderGameForm(c, "/edit_game/"+id, *game)
}

func (s *Server) handleEditGame(c *gin.Context) {
	id := c.Param("id")
	var form gameForm
	if err := bindForm(c, &form, gameMessages); err != nil {
		s.formError(c, "/edit_game/"+id, err)
		return
	}
	if err := s.content.Games.Replace(c.Request.Context(), id, form.game(), currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	s.mutated(c, kindGame, eventbus.ActionUpdated, id, "/games")
}

func (s *Server) handleDeleteGame(c *gin.Context) {
	id := c.Param("id")
	if err := s.content.Games.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	s.mutated(c, kindGame, eventbus.ActionDeleted, id, "/games")
}

// Genres

func (s *Server) handleGenres(c *gin.Context) {
	genres, err := s.content.Genres.List(c.Request.Context(), byName)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageGenres, web.GenresView{Page: s.page(c), Genres: genres})
}

func (s *Server) handleSearchGenres(c *gin.Context) {
	query, err := searchQuery(c)
	if err != nil {
		s.formError(c, "/genres", err)
		return
	}
	genres, err := s.content.Genres.Search(c.Request.Context(), query)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageGenres, web.GenresView{Page: s.page(c), Query: query, Genres: genres})
}

func (s *Server) handleAddGenreForm(c *gin.Context) {
	s.render(c, http.StatusOK, web.PageGenreForm, web.GenreFormView{Page: s.page(c), Action: "/add_genre"})
}

func (s *Server) handleAddGenre(c *gin.Context) {
	var form genreForm
	if err := bindForm(c, &form, genreMessages); err != nil {
		s.formError(c, "/add_genre", err)
		return
	}
	id, err := s.content.Genres.Insert(c.Request.Context(), form.genre(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.mutated(c, kindGenre, eventbus.ActionCreated, id, "/genres")
}

func (s *Server) handleEditGenreForm(c *gin.Context) {
	id := c.Param("id")
	genre, err := s.content.Genres.FindByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageGenreForm, web.GenreFormView{
		Page:   s.page(c),
		Action: "/edit_genre/" + id,
		Genre:  *genre,
	})
}

func (s *Server) handleEditGenre(c *gin.Context) {
	id := c.Param("id")
	var form genreForm
	if err := bindForm(c, &form, genreMessages); err != nil {
		s.formError(c, "/edit_genre/"+id, err)
		return
	}
	if err := s.content.Genres.Replace(c.Request.Context(), id, form.genre(), currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	s.mutated(c, kindGenre, eventbus.ActionUpdated, id, "/genres")
}

func (s *Server) handleDeleteGenre(c *gin.Context) {
	id := c.Param("id")
	if err := s.content.Genres.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	s.mutated(c, kindGenre, eventbus.ActionDeleted, id, "/genres")
}

// News

func (s *Server) handleNews(c *gin.Context) {
	news, err := s.content.News.List(c.Request.Context(), newestFirst)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageNews, web.NewsView{Page: s.page(c), News: news})
}

func (s *Server) handleSearchNews(c *gin.Context) {
	query, err := searchQuery(c)
	if err != nil {
		s.formError(c, "/news", err)
		return
	}
	news, err := s.content.News.Search(c.Request.Context(), query)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageNews, web.NewsView{Page: s.page(c), Query: query, News: news})
}

func (s *Server) renderNewsForm(c *gin.Context, action string, news content.News) {
	ctx := c.Request.Context()
	games, err := s.gameNames(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	genres, err := s.genreNames(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageNewsForm, web.NewsFormView{
		Page:       s.page(c),
		Action:     action,
		News:       news,
		GameNames:  games,
		GenreNames: genres,
	})
}

func (s *Server) handleAddNewsForm(c *gin.Context) {
	s.renderNewsForm(c, "/add_news", content.News{})
}

func (s *Server) handleAddNews(c *gin.Context) {
	var form newsForm
	if err := bindForm(c, &form, newsMessages); err != nil {
		s.formError(c, "/add_news", err)
		return
	}
	id, err := s.content.News.Insert(c.Request.Context(), form.news(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.mutated(c, kindNews, eventbus.ActionCreated, id, "/news")
}

func (s *Server) handleEditNewsForm(c *gin.Context) {
	id := c.Param("id")
	news, err := s.content.News.FindByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.renderNewsForm(c, "/edit_news/"+id, *news)
}

func (s *Server) handleEditNews(c *gin.Context) {
	id := c.Param("id")
	var form newsForm
	if err := bindForm(c, &form, newsMessages); err != nil {
		s.formError(c, "/edit_news/"+id, err)
		return
	}
	if err := s.content.News.Replace(c.Request.Context(), id, form.news(), currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	s.mutated(c, kindNews, eventbus.ActionUpdated, id, "/news")
}

func (s *Server) handleDeleteNews(c *gin.Context) {
	id := c.Param("id")
	if err := s.content.News.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	s.mutated(c, kindNews, eventbus.ActionDeleted, id, "/news")
}

// Reviews

func (s *Server) handleReviews(c *gin.Context) {
	reviews, err := s.content.Reviews.List(c.Request.Context(), newestFirst)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageReviews, web.ReviewsView{Page: s.page(c), Reviews: reviews})
}

func (s *Server) handleSearchReviews(c *gin.Context) {
	query, err := searchQuery(c)
	if err != nil {
		s.formError(c, "/reviews", err)
		return
	}
	reviews, err := s.content.Reviews.Search(c.Request.Context(), query)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageReviews, web.ReviewsView{Page: s.page(c), Query: query, Reviews: reviews})
}

func (s *Server) renderReviewForm(c *gin.Context, action string, review content.Review) {
	ctx := c.Request.Context()
	games, err := s.gameNames(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	genres, err := s.genreNames(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageReviewForm, web.ReviewFormView{
		Page:       s.page(c),
		Action:     action,
		Review:     review,
		GameNames:  games,
		GenreNames: genres,
	})
}

func (s *Server) handleAddReviewForm(c *gin.Context) {
	s.renderReviewForm(c, "/add_review", content.Review{})
}

func (s *Server) handleAddReview(c *gin.Context) {
	var form reviewForm
	if err := bindForm(c, &form, reviewMessages); err != nil {
		s.formError(c, "/add_review", err)
		return
	}
	id, err := s.content.Reviews.Insert(c.Request.Context(), form.review(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.mutated(c, kindReview, eventbus.ActionCreated, id, "/reviews")
}

func (s *Server) handleEditReviewForm(c *gin.Context) {
	id := c.Param("id")
	review, err := s.content.Reviews.FindByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.renderReviewForm(c, "/edit_review/"+id, *review)
}

func (s *Server) handleEditReview(c *gin.Context) {
	id := c.Param("id")
	var form reviewForm
	if err := bindForm(c, &form, reviewMessages); err != nil {
		s.formError(c, "/edit_review/"+id, err)
		return
	}
	if err := s.content.Reviews.Replace(c.Request.Context(), id, form.review(), currentUser(c)); err != nil {
		s.fail(c, err)
		return
	}
	s.mutated(c, kindReview, eventbus.ActionUpdated, id, "/reviews")
}

func (s *Server) handleDeleteReview(c *gin.Context) {
	id := c.Param("id")
	if err := s.content.Reviews.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	s.mutated(c, kindReview, eventbus.ActionDeleted, id, "/reviews")
}
