package api

import (
	"net/http"

	"github.com/annel0/game-hub/internal/session"
	"github.com/annel0/game-hub/internal/web"
	"github.com/gin-gonic/gin"
)

const (
	sessionKey = "session"
	userKey    = "username"
)

// sessionMiddleware loads the visitor's session into the gin context.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := s.sessions.Load(c.Writer, c.Request)
		c.Set(sessionKey, sess)
		if user, err := sess.Current(c.Request.Context()); err == nil {
			c.Set(userKey, user)
		}
		c.Next()
	}
}

// requireLogin sends anonymous visitors to the login page.
func (s *Server) requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == "" {
			s.log.Debug("anonymous %s %s redirected to login", c.Request.Method, c.Request.URL.Path)
			s.flash(c, "Please log in to continue.")
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// currentUser returns the logged-in username, or "" for anonymous visitors.
func currentUser(c *gin.Context) string {
	return c.GetString(userKey)
}

// flash queues msg for the next rendered page. A session store failure is
// logged and the message dropped.
func (s *Server) flash(c *gin.Context, msg string) {
	sess := sessionFrom(c)
	if sess == nil {
		return
	}
	if err := sess.Push(c.Request.Context(), msg); err != nil {
		s.log.Warn("flash dropped: %v", err)
	}
}

// page drains pending flashes into the layout data.
func (s *Server) page(c *gin.Context) web.Page {
	p := web.Page{User: currentUser(c)}
	if sess := sessionFrom(c); sess != nil {
		flashes, err := sess.Drain(c.Request.Context())
		if err != nil {
			s.log.Warn("flash drain failed: %v", err)
		}
		p.Flashes = flashes
	}
	return p
}

// redirect flashes msg and sends a 302 to location.
func (s *Server) redirect(c *gin.Context, location, msg string) {
	if msg != "" {
		s.flash(c, msg)
	}
	c.Redirect(http.StatusFound, location)
}
