package api

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/annel0/game-hub/internal/auth"
	"github.com/annel0/game-hub/internal/content"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ValidationError is a form that failed binding. Message is safe to show.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return "validation failed on " + e.Field + ": " + e.Message
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

var registerOnce sync.Once

// registerValidators adds the custom tags used by the form schemas to gin's
// validator engine.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(strings.TrimSpace(fl.Field().String()))
		})
		// bcrypt counts bytes, max= counts runes.
		_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= auth.MaxPasswordBytes
		})
	})
}

// fieldMessages maps struct field -> validator tag -> flash text.
type fieldMessages map[string]map[string]string

// bindForm binds the request form into dst and turns validator failures
// into a *ValidationError carrying the first matching message.
func bindForm(c *gin.Context, dst any, messages fieldMessages) error {
	err := c.ShouldBind(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if byTag, ok := messages[verr.Field()]; ok {
				if msg, ok := byTag[verr.Tag()]; ok {
					return &ValidationError{Field: verr.Field(), Message: msg}
				}
			}
		}
		return &ValidationError{Field: verrs[0].Field(), Message: "Please check the " + strings.ToLower(verrs[0].Field()) + " field."}
	}
	return &ValidationError{Message: "Please check the form and try again."}
}

type registerForm struct {
	Username string `form:"username" binding:"required,username"`
	Password string `form:"password" binding:"required,min=5,bcryptlen"`
}

var registerMessages = fieldMessages{
	"Username": {
		"required": "Please choose a username.",
		"username": "Usernames are 3 to 32 letters, digits, dots, dashes or underscores.",
	},
	"Password": {
		"required":  "Please choose a password.",
		"min":       "Passwords need at least 5 characters.",
		"bcryptlen": "Passwords can be at most 72 bytes long.",
	},
}

type loginForm struct {
	Username string `form:"username" binding:"required,notblank"`
	Password string `form:"password" binding:"required"`
}

var loginMessages = fieldMessages{
	"Username": {"required": "Please enter your username.", "notblank": "Please enter your username."},
	"Password": {"required": "Please enter your password."},
}

type searchForm struct {
	Query string `form:"query" binding:"max=200"`
}

var searchMessages = fieldMessages{
	"Query": {"max": "Searches can be at most 200 characters."},
}

type gameForm struct {
	Name          string `form:"name" binding:"required,notblank,max=120"`
	Genre         string `form:"genre" binding:"required,notblank,max=80"`
	Description   string `form:"description" binding:"required,notblank,max=4000"`
	ImgURL        string `form:"img_url" binding:"omitempty,url,max=500"`
	AffiliateLink string `form:"affiliate_link" binding:"omitempty,url,max=500"`
}

var gameMessages = fieldMessages{
	"Name":          {"required": "Name is required.", "notblank": "Name is required.", "max": "Name is too long."},
	"Genre":         {"required": "Genre is required.", "notblank": "Genre is required."},
	"Description":   {"required": "Description is required.", "notblank": "Description is required.", "max": "Description is too long."},
	"ImgURL":        {"url": "Image URL must be a full http(s) address."},
	"AffiliateLink": {"url": "Affiliate link must be a full http(s) address."},
}

func (f gameForm) game() *content.Game {
	return &content.Game{
		Name:          strings.TrimSpace(f.Name),
		Genre:         strings.TrimSpace(f.Genre),
		Description:   strings.TrimSpace(f.Description),
		ImgURL:        strings.TrimSpace(f.ImgURL),
		AffiliateLink: strings.TrimSpace(f.AffiliateLink),
	}
}

type genreForm struct {
	Name        string `form:"name" binding:"required,notblank,max=80"`
	Description string `form:"description" binding:"required,notblank,max=4000"`
}

var genreMessages = fieldMessages{
	"Name":        {"required": "Name is required.", "notblank": "Name is required.", "max": "Name is too long."},
	"Description": {"required": "Description is required.", "notblank": "Description is required.", "max": "Description is too long."},
}

func (f genreForm) genre() *content.Genre {
	return &content.Genre{
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
	}
}

type newsForm struct {
	Game  string `form:"game" binding:"required,notblank,max=120"`
	Genre string `form:"genre" binding:"required,notblank,max=80"`
	Title string `form:"title" binding:"required,notblank,max=200"`
	Text  string `form:"text" binding:"required,notblank,max=20000"`
}

var newsMessages = fieldMessages{
	"Game":  {"required": "Game is required.", "notblank": "Game is required."},
	"Genre": {"required": "Genre is required.", "notblank": "Genre is required."},
	"Title": {"required": "Title is required.", "notblank": "Title is required.", "max": "Title is too long."},
	"Text":  {"required": "Text is required.", "notblank": "Text is required.", "max": "Text is too long."},
}

func (f newsForm) news() *content.News {
	return &content.News{
		Game:  strings.TrimSpace(f.Game),
		Genre: strings.TrimSpace(f.Genre),
		Title: strings.TrimSpace(f.Title),
		Text:  strings.TrimSpace(f.Text),
	}
}

type reviewForm struct {
	Game    string `form:"game" binding:"required,notblank,max=120"`
	Genre   string `form:"genre" binding:"required,notblank,max=80"`
	Content string `form:"content" binding:"required,notblank,max=20000"`
}

var reviewMessages = fieldMessages{
	"Game":    {"required": "Game is required.", "notblank": "Game is required."},
	"Genre":   {"required": "Genre is required.", "notblank": "Genre is required."},
	"Content": {"required": "Review text is required.", "notblank": "Review text is required.", "max": "Review is too long."},
}

func (f reviewForm) review() *content.Review {
	return &content.Review{
		Game:    strings.TrimSpace(f.Game),
		Genre:   strings.TrimSpace(f.Genre),
		Content: strings.TrimSpace(f.Content),
	}
}
