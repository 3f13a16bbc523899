package auth

import "time"

// User is a registered account. Users are never updated or deleted.
type User struct {
	Username     string    // lowercase, unique
	PasswordHash string    // bcrypt hash (60 chars)
	CreatedAt    time.Time // registration time (UTC)
}
