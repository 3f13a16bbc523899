package auth

import (
	"context"
	"errors"
	"strings"
)

// UserRepository persists accounts. Implementations normalise usernames to
// lowercase and enforce uniqueness on the normalised form.
type UserRepository interface {
	// GetUserByUsername returns the user or ErrUserNotFound.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// CreateUser stores a new account with an already hashed password.
	// Returns ErrUserExists on a username conflict.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// Close releases the backend connection.
	Close() error
}

// Repository-level errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// normalize lowercases and trims a username.
func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
