package users

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/authsvc/internal/common"
	"github.com/dmitrijs2005/authsvc/internal/server/models"
)

type storedUser struct {
	hash        models.PasswordHash
	requires2FA bool
}

// MemoryRepository keeps users in a map guarded by a RWMutex.
type MemoryRepository struct {
	credentials

	mu    sync.RWMutex
	users map[models.Email]storedUser
}

func NewMemoryRepository(hasher PasswordHasher) *MemoryRepository {
	return &MemoryRepository{
		credentials: credentials{hasher: hasher},
		users:       make(map[models.Email]storedUser),
	}
}

func (r *MemoryRepository) exists(email models.Email) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[email]
	return ok
}

// AddUser hashes outside the lock; the authoritative existence check and
// the insert share one write lock.
func (r *MemoryRepository) AddUser(ctx context.Context, u models.User) error {
	if r.exists(u.Email) {
		return common.ErrAlreadyExists
	}

	hash, err := r.hash(ctx, u.Password)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.Email]; ok {
		return common.ErrAlreadyExists
	}
	r.users[u.Email] = storedUser{hash: hash, requires2FA: u.Requires2FA}
	return nil
}

func (r *MemoryRepository) GetUser(_ context.Context, email models.Email) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.users[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &models.User{Email: email, PasswordHash: s.hash, Requires2FA: s.requires2FA}, nil
}

func (r *MemoryRepository) ValidateUser(ctx context.Context, email models.Email, password models.Password) error {
	_, err := r.Authenticate(ctx, email, password)
	return err
}

func (r *MemoryRepository) Authenticate(ctx context.Context, email models.Email, password models.Password) (*models.User, error) {
	return r.authenticate(ctx, r.GetUser, email, password)
}
