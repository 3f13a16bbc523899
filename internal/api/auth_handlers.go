package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/annel0/game-hub/internal/auth"
	"github.com/annel0/game-hub/internal/storage"
	"github.com/annel0/game-hub/internal/web"
	"github.com/gin-gonic/gin"
)

func profilePath(username string) string {
	return "/profile/" + url.PathEscape(username)
}

func (s *Server) handleRegisterForm(c *gin.Context) {
	s.render(c, http.StatusOK, web.PageRegister, s.page(c))
}

// handleRegister creates the account and logs the new user in.
func (s *Server) handleRegister(c *gin.Context) {
	var form registerForm
	if err := bindForm(c, &form, registerMessages); err != nil {
		s.formError(c, "/register", err)
		return
	}

	user, err := s.users.Register(c.Request.Context(), form.Username, form.Password)
	if errors.Is(err, auth.ErrUsernameTaken) {
		s.redirect(c, "/register", "Username already exists, please try again.")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := sessionFrom(c).Start(c.Request.Context(), user.Username); err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info("registered user %s", user.Username)
	s.redirect(c, profilePath(user.Username), "Registration Successful")
}

func (s *Server) handleLoginForm(c *gin.Context) {
	s.render(c, http.StatusOK, web.PageLogin, s.page(c))
}

func (s *Server) handleLogin(c *gin.Context) {
	var form loginForm
	if err := bindForm(c, &form, loginMessages); err != nil {
		s.formError(c, "/login", err)
		return
	}

	user, err := s.users.Verify(c.Request.Context(), form.Username, form.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.log.Debug("failed login for %q", form.Username)
		s.redirect(c, "/login", "Incorrect username and/or password")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := sessionFrom(c).Start(c.Request.Context(), user.Username); err != nil {
		s.fail(c, err)
		return
	}
	s.redirect(c, profilePath(user.Username), "Welcome, "+user.Username)
}

func (s *Server) handleLogout(c *gin.Context) {
	if currentUser(c) == "" {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if err := sessionFrom(c).End(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	s.redirect(c, "/login", "You have been logged out")
}

// handleProfile shows the named user and the reviews they wrote.
func (s *Server) handleProfile(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := s.users.Lookup(ctx, c.Param("username"))
	if err != nil {
		s.fail(c, err)
		return
	}
	reviews, err := s.content.Reviews.List(ctx, storage.ListOptions{
		CreatedBy:  user.Username,
		SortKey:    "date",
		Descending: true,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, web.PageProfile, web.ProfileView{
		Page:     s.page(c),
		Username: user.Username,
		Joined:   user.CreatedAt,
		Reviews:  reviews,
	})
}

// formError flashes a validation message and sends the visitor back to the
// form. Anything else is a server error.
func (s *Server) formError(c *gin.Context, back string, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		s.redirect(c, back, verr.Message)
		return
	}
	s.fail(c, err)
}
