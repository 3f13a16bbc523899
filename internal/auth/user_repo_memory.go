package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryUserRepo is a threadsafe in-memory repository for tests and
// single-instance servers. Accounts are lost on restart.
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]*User // key = normalize(username)
}

// NewMemoryUserRepo returns an empty repository.
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]*User)}
}

func (r *MemoryUserRepo) GetUserByUsername(_ context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[normalize(username)]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *MemoryUserRepo) CreateUser(_ context.Context, username, passwordHash string) (*User, error) {
	key := normalize(username)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[key]; exists {
		return nil, ErrUserExists
	}

	user := &User{
		Username:     key,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.users[key] = user
	cp := *user
	return &cp, nil
}

// Count returns the number of stored accounts.
func (r *MemoryUserRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *MemoryUserRepo) Close() error { return nil }
