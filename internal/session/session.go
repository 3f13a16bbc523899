package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/annel0/game-hub/internal/cache"
	"github.com/annel0/game-hub/internal/logging"
	"github.com/google/uuid"
)

// ErrUnauthenticated is returned by Current when no user is logged in.
var ErrUnauthenticated = errors.New("not logged in")

const keyPrefix = "session:"

// Options configures the session cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// state is the server-side record, stored as JSON.
type state struct {
	Username string   `json:"username,omitempty"`
	Flashes  []string `json:"flashes,omitempty"`
}

// Manager loads and persists sessions. The cookie holds a signed token
// naming a record in the cache store.
type Manager struct {
	store cache.Store
	codec *TokenCodec
	opts  Options
	newID func() string
}

// NewManager returns a Manager over store, signing cookies with secret.
func NewManager(store cache.Store, secret string, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "gh_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Manager{
		store: store,
		codec: NewTokenCodec(secret, opts.TTL),
		opts:  opts,
		newID: uuid.NewString,
	}
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string { return m.opts.CookieName }

// Load returns the session for r. A missing, invalid or expired cookie, or
// a record that is gone from the store, yields a fresh anonymous session.
// Nothing is written until the session changes.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) *Session {
	s := &Session{m: m, w: w}

	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return s
	}
	id, err := m.codec.Parse(cookie.Value)
	if err != nil {
		logging.GetAuthLogger().Debug("discarding session cookie: %v", err)
		return s
	}

	data, err := m.store.Get(r.Context(), keyPrefix+id)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logging.GetAuthLogger().Warn("session store read failed: %v", err)
		}
		return s
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		logging.GetAuthLogger().Warn("corrupt session %s: %v", id, err)
		return s
	}
	s.id = id
	s.state = st
	return s
}

// Session is the per-request view of one session record.
type Session struct {
	m     *Manager
	w     http.ResponseWriter
	id    string
	state state
}

// ID returns the current session id, empty for a session never saved.
func (s *Session) ID() string { return s.id }

// Start binds username to the session. The session id is rotated and any
// pending flashes are carried over.
func (s *Session) Start(ctx context.Context, username string) error {
	if s.id != "" {
		if err := s.m.store.Delete(ctx, keyPrefix+s.id); err != nil {
			logging.GetAuthLogger().Warn("failed to drop old session %s: %v", s.id, err)
		}
	}
	s.id = s.m.newID()
	s.state.Username = username
	return s.save(ctx)
}

// Current returns the logged-in username or ErrUnauthenticated.
func (s *Session) Current(_ context.Context) (string, error) {
	if s.state.Username == "" {
		return "", ErrUnauthenticated
	}
	return s.state.Username, nil
}

// End clears the identity. Pending flashes survive.
func (s *Session) End(ctx context.Context) error {
	if s.id == "" {
		return nil
	}
	s.state.Username = ""
	return s.save(ctx)
}

// Push queues a one-shot message for the next rendered page.
func (s *Session) Push(ctx context.Context, msg string) error {
	s.state.Flashes = append(s.state.Flashes, msg)
	return s.save(ctx)
}

// Drain returns the queued messages in push order and clears the queue.
func (s *Session) Drain(ctx context.Context) ([]string, error) {
	if len(s.state.Flashes) == 0 {
		return nil, nil
	}
	out := s.state.Flashes
	s.state.Flashes = nil
	if err := s.save(ctx); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Session) save(ctx context.Context) error {
	if s.id == "" {
		s.id = s.m.newID()
	}
	data, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.m.store.Set(ctx, keyPrefix+s.id, data, s.m.opts.TTL); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	token, err := s.m.codec.Sign(s.id)
	if err != nil {
		return err
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.m.opts.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.m.opts.TTL / time.Second),
		HttpOnly: true,
		Secure:   s.m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
