package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/game-hub/internal/logging"
)

var (
	// ErrUsernameTaken is returned by Register for an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials is returned by Verify for an unknown user and
	// for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// CredentialStore registers and verifies accounts on top of a
// UserRepository.
type CredentialStore struct {
	repo UserRepository
	cost int

	dummyOnce sync.Once
	dummyHash string
}

// NewCredentialStore wraps repo. cost is the bcrypt cost; zero selects the
// library default.
func NewCredentialStore(repo UserRepository, cost int) *CredentialStore {
	return &CredentialStore{repo: repo, cost: cost}
}

// Register creates an account for the lowercased username.
//
// Returns:
//
//	*User - the stored account
//	error - ErrUsernameTaken, or a storage error
func (s *CredentialStore) Register(ctx context.Context, username, password string) (*User, error) {
	name := normalize(username)
	if _, err := s.repo.GetUserByUsername(ctx, name); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.CreateUser(ctx, name, hash)
	if errors.Is(err, ErrUserExists) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", name, err)
	}
	logging.GetAuthLogger().Info("registered user %s", name)
	return user, nil
}

// Verify checks a username/password pair. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (s *CredentialStore) Verify(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		// Compare anyway so unknown users cost the same as known ones.
		CheckPassword(s.fallbackHash(), password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		logging.GetAuthLogger().Debug("password mismatch for %s", user.Username)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Lookup returns the account or ErrUserNotFound.
func (s *CredentialStore) Lookup(ctx context.Context, username string) (*User, error) {
	return s.repo.GetUserByUsername(ctx, username)
}

func (s *CredentialStore) fallbackHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = HashPassword("game-hub-placeholder", s.cost)
	})
	return s.dummyHash
}
