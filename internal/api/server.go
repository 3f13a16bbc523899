package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/annel0/game-hub/internal/auth"
	"github.com/annel0/game-hub/internal/content"
	"github.com/annel0/game-hub/internal/eventbus"
	"github.com/annel0/game-hub/internal/logging"
	"github.com/annel0/game-hub/internal/middleware"
	"github.com/annel0/game-hub/internal/session"
	"github.com/annel0/game-hub/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Server maps the site's routes onto the content, credential and session
// stores.
type Server struct {
	router   *gin.Engine
	handler  http.Handler
	content  *content.Store
	users    *auth.CredentialStore
	sessions *session.Manager
	views    *web.Renderer
	events   eventbus.EventBus
	health   *ServerMetrics
	log      *logging.Logger
	service  string

	httpServer *http.Server
	addr       string
}

// Config holds the server's collaborators.
type Config struct {
	ServiceName string
	Content     *content.Store
	Users       *auth.CredentialStore
	Sessions    *session.Manager
	Views       *web.Renderer
	// Events receives content changes. Nil disables publishing.
	Events eventbus.EventBus
	// Registry enables HTTP metrics and /metrics when set.
	Registry *prometheus.Registry
	// Ping reports store reachability on /health. Optional.
	Ping func(ctx context.Context) error
	Log  *logging.Logger
}

// NewServer builds the gin engine with the middleware chain and routes.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Content == nil || cfg.Users == nil || cfg.Sessions == nil || cfg.Views == nil {
		return nil, errors.New("api: content, users, sessions and views are required")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "game-hub"
	}
	if cfg.Log == nil {
		cfg.Log = logging.GetHTTPLogger()
	}
	registerValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.NewRequestLogger(cfg.Log, "/static", "/health").Handler())

	if cfg.Registry != nil {
		promMw, err := middleware.NewPrometheusMiddleware(cfg.ServiceName, cfg.Registry)
		if err != nil {
			return nil, err
		}
		router.Use(promMw.Handler())
		promMw.RegisterMetricsEndpoint(router, cfg.Registry)
	}

	s := &Server{
		router:   router,
		content:  cfg.Content,
		users:    cfg.Users,
		sessions: cfg.Sessions,
		views:    cfg.Views,
		events:   cfg.Events,
		health:   NewServerMetrics(cfg.Ping),
		log:      cfg.Log,
		service:  cfg.ServiceName,
	}
	s.setupRoutes()

	gzip, err := gzhttp.NewWrapper(gzhttp.MinSize(512))
	if err != nil {
		return nil, err
	}
	s.handler = gzip(router)
	return s, nil
}

// Handler returns the root http.Handler, with gzip response compression.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) setupRoutes() {
	r := s.router
	r.StaticFS("/static", http.FS(web.Static()))
	r.GET("/health", s.handleHealth)

	site := r.Group("/")
	site.Use(s.sessionMiddleware())
	{
		site.GET("/", s.handleIndex)
		site.GET("/index", s.handleIndex)

		site.GET("/register", s.handleRegisterForm)
		site.POST("/register", s.handleRegister)
		site.GET("/login", s.handleLoginForm)
		site.POST("/login", s.handleLogin)
		site.GET("/logout", s.handleLogout)

		site.GET("/games", s.handleGames)
		site.GET("/genres", s.handleGenres)
		site.GET("/news", s.handleNews)
		site.GET("/reviews", s.handleReviews)

		site.Match([]string{http.MethodGet, http.MethodPost}, "/search_game", s.handleSearchGames)
		site.Match([]string{http.MethodGet, http.MethodPost}, "/search_genre", s.handleSearchGenres)
		site.Match([]string{http.MethodGet, http.MethodPost}, "/search_news", s.handleSearchNews)
		site.Match([]string{http.MethodGet, http.MethodPost}, "/search_review", s.handleSearchReviews)

		members := site.Group("/")
		members.Use(s.requireLogin())
		{
			members.GET("/profile/:username", s.handleProfile)

			members.GET("/add_game", s.handleAddGameForm)
			members.POST("/add_game", s.handleAddGame)
			members.GET("/edit_game/:id", s.handleEditGameForm)
			members.POST("/edit_game/:id", s.handleEditGame)
			members.Match([]string{http.MethodGet, http.MethodPost}, "/delete_game/:id", s.handleDeleteGame)

			members.GET("/add_genre", s.handleAddGenreForm)
			members.POST("/add_genre", s.handleAddGenre)
			members.GET("/edit_genre/:id", s.handleEditGenreForm)
			members.POST("/edit_genre/:id", s.handleEditGenre)
			members.Match([]string{http.MethodGet, http.MethodPost}, "/delete_genre/:id", s.handleDeleteGenre)

			members.GET("/add_news", s.handleAddNewsForm)
			members.POST("/add_news", s.handleAddNews)
			members.GET("/edit_news/:id", s.handleEditNewsForm)
			members.POST("/edit_news/:id", s.handleEditNews)
			members.Match([]string{http.MethodGet, http.MethodPost}, "/delete_news/:id", s.handleDeleteNews)

			members.GET("/add_review", s.handleAddReviewForm)
			members.POST("/add_review", s.handleAddReview)
			members.GET("/edit_review/:id", s.handleEditReviewForm)
			members.POST("/edit_review/:id", s.handleEditReview)
			members.Match([]string{http.MethodGet, http.MethodPost}, "/delete_review/:id", s.handleDeleteReview)
		}
	}

	r.NoRoute(s.sessionMiddleware(), func(c *gin.Context) {
		s.renderError(c, http.StatusNotFound, "The page you asked for does not exist.")
	})
}
