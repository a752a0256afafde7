// Package users implements the credential store: the mapping from an
// email to its password hash and second-factor requirement.
package users

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/authsvc/internal/common"
	"github.com/dmitrijs2005/authsvc/internal/cryptox"
	"github.com/dmitrijs2005/authsvc/internal/server/models"
)

// Repository is the credential store contract shared by all backends.
type Repository interface {
	// AddUser hashes u.Password and stores the user. It returns
	// common.ErrAlreadyExists if the email is taken.
	AddUser(ctx context.Context, u models.User) error

	// GetUser returns the stored user or common.ErrNotFound. The returned
	// user carries PasswordHash and never Password.
	GetUser(ctx context.Context, email models.Email) (*models.User, error)

	// ValidateUser checks a password without returning the user.
	ValidateUser(ctx context.Context, email models.Email, password models.Password) error

	// Authenticate returns the user if password matches. It fails with
	// common.ErrNotFound or common.ErrInvalidCredentials.
	Authenticate(ctx context.Context, email models.Email, password models.Password) (*models.User, error)
}

// PasswordHasher is satisfied by *cryptox.Argon2idHasher.
type PasswordHasher interface {
	Hash(ctx context.Context, password []byte) (string, error)
	Verify(ctx context.Context, encoded string, candidate []byte) error
}

// dummyPassword is hashed once per store and verified against when an
// email is unknown, so that lookups for missing users cost a hash too.
const dummyPassword = "Dummy-Password-0!"

type credentials struct {
	hasher PasswordHasher

	dummyMu   sync.Mutex
	dummyHash string
}

func (c *credentials) hash(ctx context.Context, p models.Password) (models.PasswordHash, error) {
	encoded, err := c.hasher.Hash(ctx, []byte(p.Secret().Expose()))
	if err != nil {
		return "", err
	}
	return models.PasswordHash(encoded), nil
}

// dummy returns the dummy hash, computing it on first use. It does not
// depend on any request context, and a failed attempt is retried on the
// next call.
func (c *credentials) dummy() string {
	c.dummyMu.Lock()
	defer c.dummyMu.Unlock()
	if c.dummyHash == "" {
		if h, err := c.hasher.Hash(context.Background(), []byte(dummyPassword)); err == nil {
			c.dummyHash = h
		}
	}
	return c.dummyHash
}

func (c *credentials) burnVerify(ctx context.Context, p models.Password) {
	if h := c.dummy(); h != "" {
		_ = c.hasher.Verify(ctx, h, []byte(p.Secret().Expose()))
	}
}

// authenticate runs the lookup-then-verify sequence common to all
// backends.
func (c *credentials) authenticate(
	ctx context.Context,
	get func(context.Context, models.Email) (*models.User, error),
	email models.Email,
	password models.Password,
) (*models.User, error) {
	u, err := get(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.burnVerify(ctx, password)
		}
		return nil, err
	}

	err = c.hasher.Verify(ctx, string(u.PasswordHash), []byte(password.Secret().Expose()))
	if err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	return u, nil
}
