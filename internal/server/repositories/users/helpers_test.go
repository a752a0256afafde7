package users

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/authsvc/internal/cryptox"
	"github.com/dmitrijs2005/authsvc/internal/server/models"
	"github.com/stretchr/testify/require"
)

// fakeHasher encodes passwords reversibly so tests can run without the
// real KDF cost.
type fakeHasher struct {
	hashes   atomic.Int32
	verifies atomic.Int32
	hashErr  error
}

func (f *fakeHasher) Hash(ctx context.Context, password []byte) (string, error) {
	f.hashes.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.hashErr != nil {
		return "", f.hashErr
	}
	return "fake$" + string(password), nil
}

func (f *fakeHasher) Verify(_ context.Context, encoded string, candidate []byte) error {
	f.verifies.Add(1)
	if !strings.HasPrefix(encoded, "fake$") || encoded[len("fake$"):] != string(candidate) {
		return cryptox.ErrMismatch
	}
	return nil
}

func mustEmail(t *testing.T, raw string) models.Email {
	t.Helper()
	e, err := models.ParseEmail(raw)
	require.NoError(t, err)
	return e
}

func mustPassword(t *testing.T, raw string) models.Password {
	t.Helper()
	p, err := models.ParsePassword(models.NewSecret(raw))
	require.NoError(t, err)
	return p
}

func newUser(t *testing.T, email, password string, requires2FA bool) models.User {
	t.Helper()
	return models.User{Email: mustEmail(t, email), Password: mustPassword(t, password), Requires2FA: requires2FA}
}
