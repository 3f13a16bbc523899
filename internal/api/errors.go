package api

import (
	"errors"
	"net/http"

	"github.com/annel0/game-hub/internal/auth"
	"github.com/annel0/game-hub/internal/storage"
	"github.com/annel0/game-hub/internal/web"
	"github.com/gin-gonic/gin"
)

// statusFor maps store errors to the HTTP status and the text shown to the
// visitor.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, "The page you asked for does not exist."
	case errors.Is(err, storage.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "The site is temporarily unavailable. Please try again shortly."
	default:
		return http.StatusInternalServerError, "Something went wrong on our side."
	}
}

// fail renders the error page for err. The error itself is only logged.
func (s *Server) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		s.log.Debug("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	s.renderError(c, status, msg)
}

func (s *Server) renderError(c *gin.Context, status int, msg string) {
	s.render(c, status, web.PageError, web.ErrorView{Page: s.page(c), Status: status, Message: msg})
}

// render writes page through the templ handler and stops the chain.
func (s *Server) render(c *gin.Context, status int, page string, data any) {
	s.views.Handler(page, data, status).ServeHTTP(c.Writer, c.Request)
	c.Abort()
}
