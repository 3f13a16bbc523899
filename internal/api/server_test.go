package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/annel0/game-hub/internal/auth"
	"github.com/annel0/game-hub/internal/cache"
	"github.com/annel0/game-hub/internal/content"
	"github.com/annel0/game-hub/internal/eventbus"
	"github.com/annel0/game-hub/internal/logging"
	"github.com/annel0/game-hub/internal/session"
	"github.com/annel0/game-hub/internal/storage"
	"github.com/annel0/game-hub/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testSite struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	store  *content.Store
	users  *auth.MemoryUserRepo
	bus    eventbus.EventBus
}

type siteOptions struct {
	store *content.Store
	ping  func(ctx context.Context) error
}

func newTestSite(t *testing.T, opts siteOptions) *testSite {
	t.Helper()
	if opts.store == nil {
		opts.store = content.NewMemoryStore()
	}
	users := auth.NewMemoryUserRepo()
	bus := eventbus.NewMemoryBus(64)
	views, err := web.NewRenderer()
	require.NoError(t, err)

	server, err := NewServer(Config{
		ServiceName: "game-hub-test",
		Content:     opts.store,
		Users:       auth.NewCredentialStore(users, bcrypt.MinCost),
		Sessions:    session.NewManager(cache.NewMemoryCache(), "test-secret", session.Options{CookieName: "gamehub_session", TTL: time.Hour}),
		Views:       views,
		Events:      bus,
		Registry:    prometheus.NewRegistry(),
		Ping:        opts.ping,
		Log:         logging.NewConsoleLogger("http", io.Discard, logging.ERROR),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = bus.Close()
	})
	return &testSite{
		t:      t,
		srv:    srv,
		client: newClient(t),
		store:  opts.store,
		users:  users,
		bus:    bus,
	}
}

// newClient keeps cookies and never follows redirects.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type result struct {
	status   int
	location string
	body     string
}

func (s *testSite) do(req *http.Request) result {
	s.t.Helper()
	resp, err := s.client.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return result{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (s *testSite) get(path string) result {
	s.t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.srv.URL+path, nil)
	require.NoError(s.t, err)
	return s.do(req)
}

func (s *testSite) post(path string, form url.Values) result {
	s.t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *testSite) register(username, password string) result {
	s.t.Helper()
	return s.post("/register", url.Values{"username": {username}, "password": {password}})
}

// asUser swaps in a fresh cookie jar and registers username on it.
func (s *testSite) asUser(username string) {
	s.t.Helper()
	s.client = newClient(s.t)
	res := s.register(username, "password1")
	require.Equal(s.t, http.StatusFound, res.status)
	// consume the welcome flash
	s.get(res.location)
}

func TestAddGenreAsBob(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	site.asUser("bob")

	res := site.post("/add_genre", url.Values{"name": {"RPG"}, "description": {"Role-playing"}})
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/genres", res.location)

	genres, err := site.store.Genres.List(context.Background(), storage.ListOptions{})
	require.NoError(t, err)
	require.Len(t, genres, 1)
	assert.Equal(t, "RPG", genres[0].Name)
	assert.Equal(t, "Role-playing", genres[0].Description)
	assert.Equal(t, "bob", genres[0].CreatedBy)

	page := site.get("/genres")
	assert.Equal(t, http.StatusOK, page.status)
	assert.Contains(t, page.body, "Genre Successfully Added")
	assert.Contains(t, page.body, "RPG")

	again := site.get("/genres")
	assert.NotContains(t, again.body, "Genre Successfully Added")
}

func TestProfileRequiresLogin(t *testing.T) {
	site := newTestSite(t, siteOptions{})

	res := site.get("/profile/alice")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)
	assert.Contains(t, site.get("/login").body, "Please log in to continue.")
}

func TestAnonymousMutationIsRejected(t *testing.T) {
	site := newTestSite(t, siteOptions{})

	res := site.post("/add_game", url.Values{"name": {"Doom"}, "genre": {"Shooter"}, "description": {"Fast"}})
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)

	games, err := site.store.Games.List(context.Background(), storage.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestRegisterTwice(t *testing.T) {
	site := newTestSite(t, siteOptions{})

	res := site.register("alice", "secret1")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/profile/alice", res.location)
	profile := site.get(res.location)
	assert.Equal(t, http.StatusOK, profile.status)
	assert.Contains(t, profile.body, "Registration Successful")

	site.client = newClient(t)
	res = site.register("Alice", "other-password")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/register", res.location)
	assert.Contains(t, site.get("/register").body, "Username already exists, please try again.")
	assert.Equal(t, 1, site.users.Count())
}

func TestRegisterValidation(t *testing.T) {
	site := newTestSite(t, siteOptions{})

	res := site.register("al", "secret1")
	assert.Equal(t, "/register", res.location)
	assert.Contains(t, site.get("/register").body, "Usernames are 3 to 32 letters")

	res = site.register("alice", "abc")
	assert.Equal(t, "/register", res.location)
	assert.Contains(t, site.get("/register").body, "Passwords need at least 5 characters.")
	assert.Equal(t, 0, site.users.Count())
}

func TestRegisterMultibytePasswordTooLong(t *testing.T) {
	site := newTestSite(t, siteOptions{})

	// 40 runes, 80 bytes
	res := site.register("carol", strings.Repeat("é", 40))
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/register", res.location)
	assert.Contains(t, site.get("/register").body, "Passwords can be at most 72 bytes long.")
	assert.Equal(t, 0, site.users.Count())

	res = site.register("carol", strings.Repeat("é", 36))
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/profile/carol", res.location)
	assert.Equal(t, 1, site.users.Count())
}

func TestLogin(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	require.Equal(t, http.StatusFound, site.register("alice", "secret1").status)

	site.client = newClient(t)
	res := site.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)
	assert.Contains(t, site.get("/login").body, "Incorrect username and/or password")

	res = site.post("/login", url.Values{"username": {"nobody"}, "password": {"secret1"}})
	assert.Equal(t, "/login", res.location)

	res = site.post("/login", url.Values{"username": {"ALICE"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/profile/alice", res.location)
	profile := site.get(res.location)
	assert.Equal(t, http.StatusOK, profile.status)
	assert.Contains(t, profile.body, "Welcome, alice")
}

func TestLogoutKeepsFlash(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	site.asUser("alice")

	res := site.get("/logout")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)
	assert.Contains(t, site.get("/login").body, "You have been logged out")

	res = site.get("/add_game")
	assert.Equal(t, "/login", res.location)
}

func TestAddGameMissingNameIsRejected(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	site.asUser("alice")

	res := site.post("/add_game", url.Values{"name": {"   "}, "genre": {"RPG"}, "description": {"desc"}})
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/add_game", res.location)

	form := site.get("/add_game")
	assert.Equal(t, http.StatusOK, form.status)
	assert.Contains(t, form.body, "Name is required.")

	games, err := site.store.Games.List(context.Background(), storage.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestAddGameRejectsBadURL(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	site.asUser("alice")

	res := site.post("/add_game", url.Values{
		"name":           {"Hades"},
		"genre":          {"Roguelike"},
		"description":    {"Escape"},
		"affiliate_link": {"not a link"},
	})
	assert.Equal(t, "/add_game", res.location)
	assert.Contains(t, site.get("/add_game").body, "Affiliate link must be a full http(s) address.")
}

func TestUnknownDocumentsAre404(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	site.asUser("alice")
	unknown := primitive.NewObjectID().Hex()

	for _, path := range []string{
		"/edit_game/" + unknown,
		"/edit_game/not-hex",
		"/edit_genre/" + unknown,
		"/edit_news/" + unknown,
		"/edit_review/" + unknown,
		"/delete_game/" + unknown,
		"/delete_review/not-hex",
		"/profile/nobody",
		"/no/such/page",
	} {
		res := site.get(path)
		assert.Equal(t, http.StatusNotFound, res.status, path)
		assert.Contains(t, res.body, "does not exist", path)
	}

	res := site.post("/edit_game/"+unknown, url.Values{"name": {"X"}, "genre": {"Y"}, "description": {"Z"}})
	assert.Equal(t, http.StatusNotFound, res.status)
}

// downRepo is a repository whose backing store is unreachable.
type downRepo[T any] struct{}

func (downRepo[T]) List(context.Context, storage.ListOptions) ([]T, error) {
	return nil, storage.ErrStoreUnavailable
}
func (downRepo[T]) FindByID(context.Context, string) (*T, error) {
	return nil, storage.ErrStoreUnavailable
}
func (downRepo[T]) Insert(context.Context, *T, string) (string, error) {
	return "", storage.ErrStoreUnavailable
}
func (downRepo[T]) Replace(context.Context, string, *T, string) error {
	return storage.ErrStoreUnavailable
}
func (downRepo[T]) Delete(context.Context, string) error { return storage.ErrStoreUnavailable }
func (downRepo[T]) Search(context.Context, string) ([]T, error) {
	return nil, storage.ErrStoreUnavailable
}

func TestStoreOutageRenders503(t *testing.T) {
	store := content.NewMemoryStore()
	store.Games = downRepo[content.Game]{}
	site := newTestSite(t, siteOptions{store: store})

	for _, path := range []string{"/games", "/"} {
		res := site.get(path)
		assert.Equal(t, http.StatusServiceUnavailable, res.status, path)
		assert.Contains(t, res.body, "temporarily unavailable", path)
		assert.NotContains(t, res.body, storage.ErrStoreUnavailable.Error(), path)
	}

	site.asUser("alice")
	res := site.post("/add_game", url.Values{"name": {"Doom"}, "genre": {"Shooter"}, "description": {"Fast"}})
	assert.Equal(t, http.StatusServiceUnavailable, res.status)

	genres := site.get("/genres")
	assert.Equal(t, http.StatusOK, genres.status)
}

func TestEditGameReplacesDocument(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	ctx := context.Background()
	id, err := site.store.Games.Insert(ctx, &content.Game{
		Name:          "Hades",
		Genre:         "Roguelike",
		Description:   "old",
		AffiliateLink: "https://example.com/buy",
	}, "alice")
	require.NoError(t, err)

	site.asUser("bob")
	form := site.get("/edit_game/" + id)
	assert.Equal(t, http.StatusOK, form.status)
	assert.Contains(t, form.body, `action="/edit_game/`+id+`"`)
	assert.Contains(t, form.body, "old")

	res := site.post("/edit_game/"+id, url.Values{"name": {"Hades"}, "genre": {"Roguelike"}, "description": {"new"}})
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/games", res.location)

	game, err := site.store.Games.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new", game.Description)
	assert.Equal(t, "bob", game.CreatedBy)
	assert.Empty(t, game.AffiliateLink)
	assert.Contains(t, site.get("/games").body, "Game Successfully Updated")
}

func TestDeleteReview(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	ctx := context.Background()
	id, err := site.store.Reviews.Insert(ctx, &content.Review{Game: "Celeste", Genre: "Platformer", Content: "Tight"}, "alice")
	require.NoError(t, err)

	site.asUser("alice")
	res := site.get("/delete_review/" + id)
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/reviews", res.location)

	_, err = site.store.Reviews.FindByID(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, site.get("/reviews").body, "Review Successfully Deleted")

	assert.Equal(t, http.StatusNotFound, site.get("/delete_review/"+id).status)
}

func TestNewsAndReviewForms(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	ctx := context.Background()
	_, err := site.store.Games.Insert(ctx, &content.Game{Name: "Celeste", Genre: "Platformer", Description: "Climb"}, "alice")
	require.NoError(t, err)
	_, err = site.store.Genres.Insert(ctx, &content.Genre{Name: "Platformer", Description: "Jumping"}, "alice")
	require.NoError(t, err)

	site.asUser("alice")
	form := site.get("/add_review")
	assert.Equal(t, http.StatusOK, form.status)
	assert.Contains(t, form.body, "Celeste")
	assert.Contains(t, form.body, "Platformer")

	res := site.post("/add_review", url.Values{"game": {"Celeste"}, "genre": {"Platformer"}, "content": {"Tight controls"}})
	assert.Equal(t, "/reviews", res.location)
	res = site.post("/add_news", url.Values{"game": {"Celeste"}, "genre": {"Platformer"}, "title": {"Speedrun record"}, "text": {"Again"}})
	assert.Equal(t, "/news", res.location)

	profile := site.get("/profile/alice")
	assert.Equal(t, http.StatusOK, profile.status)
	assert.Contains(t, profile.body, "Tight controls")

	news := site.get("/news")
	assert.Contains(t, news.body, "News Successfully Added")
	assert.Contains(t, news.body, "Speedrun record")
}

func TestSearch(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	ctx := context.Background()
	_, err := site.store.Games.Insert(ctx, &content.Game{Name: "Dark Souls", Genre: "RPG", Description: "Hard"}, "alice")
	require.NoError(t, err)
	_, err = site.store.Games.Insert(ctx, &content.Game{Name: "Tetris", Genre: "Puzzle", Description: "Blocks"}, "alice")
	require.NoError(t, err)

	res := site.post("/search_game", url.Values{"query": {"souls"}})
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Dark Souls")
	assert.NotContains(t, res.body, "Tetris")

	res = site.get("/search_game?query=blocks")
	assert.Contains(t, res.body, "Tetris")
	assert.NotContains(t, res.body, "Dark Souls")

	res = site.post("/search_game", url.Values{"query": {"  "}})
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "No games found.")

	res = site.post("/search_news", url.Values{"query": {"anything"}})
	assert.Equal(t, http.StatusOK, res.status)
}

func TestSearchQueryTooLong(t *testing.T) {
	site := newTestSite(t, siteOptions{})

	res := site.post("/search_review", url.Values{"query": {strings.Repeat("a", 201)}})
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/reviews", res.location)
	assert.Contains(t, site.get("/reviews").body, "Searches can be at most 200 characters.")

	res = site.get("/search_game?query=" + strings.Repeat("b", 201))
	assert.Equal(t, "/games", res.location)
}

func TestIndexShowsLatest(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	ctx := context.Background()
	for _, title := range []string{"Old news", "Fresh news"} {
		_, err := site.store.News.Insert(ctx, &content.News{Title: title, Text: "text"}, "alice")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	for _, name := range []string{"Game One", "Game Two", "Game Three", "Game Four"} {
		_, err := site.store.Games.Insert(ctx, &content.Game{Name: name, Genre: "Any", Description: "d"}, "alice")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	for _, path := range []string{"/", "/index"} {
		res := site.get(path)
		assert.Equal(t, http.StatusOK, res.status)
		assert.Contains(t, res.body, "Fresh news")
		assert.NotContains(t, res.body, "Old news")
		assert.Contains(t, res.body, "Game Four")
		assert.Contains(t, res.body, "Game Two")
		assert.NotContains(t, res.body, "Game One")
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []eventbus.ContentEvent
}

func (l *eventLog) handle(_ context.Context, env *eventbus.Envelope) {
	ev, err := eventbus.DecodeContent(env)
	if err != nil {
		return
	}
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []eventbus.ContentEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]eventbus.ContentEvent(nil), l.events...)
}

func TestMutationsPublishEvents(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	var got eventLog
	_, err := site.bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.ContentEventType}}, got.handle)
	require.NoError(t, err)

	site.asUser("alice")
	require.Equal(t, "/genres", site.post("/add_genre", url.Values{"name": {"RPG"}, "description": {"Roles"}}).location)
	genres, err := site.store.Genres.List(context.Background(), storage.ListOptions{})
	require.NoError(t, err)
	require.Len(t, genres, 1)
	id := genres[0].ID.Hex()
	require.Equal(t, "/genres", site.get("/delete_genre/"+id).location)

	require.Eventually(t, func() bool { return len(got.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
	events := got.snapshot()
	assert.Equal(t, eventbus.ContentEvent{Kind: "genre", Action: eventbus.ActionCreated, DocumentID: id, Actor: "alice"}, events[0])
	assert.Equal(t, eventbus.ContentEvent{Kind: "genre", Action: eventbus.ActionDeleted, DocumentID: id, Actor: "alice"}, events[1])
}

func TestHealth(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	res := site.get("/health")
	require.Equal(t, http.StatusOK, res.status)

	var body healthResponse
	require.NoError(t, json.Unmarshal([]byte(res.body), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Store)
	assert.NotEmpty(t, body.Uptime)
	assert.Positive(t, body.Goroutines)
}

func TestHealthReportsStoreOutage(t *testing.T) {
	site := newTestSite(t, siteOptions{ping: func(context.Context) error { return errors.New("no route to host") }})
	res := site.get("/health")
	require.Equal(t, http.StatusServiceUnavailable, res.status)

	var body healthResponse
	require.NoError(t, json.Unmarshal([]byte(res.body), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unavailable", body.Store)
}

func TestMetricsAndStatic(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	site.get("/games")

	res := site.get("/metrics")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "game_hub_test_http_request_duration_seconds")

	css := site.get("/static/site.css")
	assert.Equal(t, http.StatusOK, css.status)
}

func TestSessionCookieAttributes(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	req, err := http.NewRequest(http.MethodPost, site.srv.URL+"/register", strings.NewReader(url.Values{"username": {"carol"}, "password": {"secret1"}}.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := site.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var found *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "gamehub_session" {
			found = c
		}
	}
	require.NotNil(t, found)
	assert.True(t, found.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, found.SameSite)
	assert.Equal(t, "/", found.Path)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Field: "Name", Message: "Name is required."}
	assert.Equal(t, "validation failed on Name: Name is required.", err.Error())
	var verr *ValidationError
	assert.True(t, errors.As(error(err), &verr))
}

func TestPagesAreGzipped(t *testing.T) {
	site := newTestSite(t, siteOptions{})
	req, err := http.NewRequest(http.MethodGet, site.srv.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := site.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
}
