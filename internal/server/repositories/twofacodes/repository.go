// Package twofacodes stores the pending second-factor challenge of each
// user: the login attempt id and the code that was sent to them.
package twofacodes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/server/models"
)

// DefaultTTL is how long a challenge stays valid.
const DefaultTTL = 10 * time.Minute

// Repository is the challenge store contract shared by all backends.
// There is at most one live challenge per email.
type Repository interface {
	// AddCode stores a challenge for email, replacing any previous one.
	AddCode(ctx context.Context, email models.Email, attemptID models.LoginAttemptID, code models.TwoFACode) error

	// GetCode returns the live challenge for email or common.ErrNotFound.
	GetCode(ctx context.Context, email models.Email) (models.LoginAttemptID, models.TwoFACode, error)

	// RemoveCode deletes the challenge for email or returns
	// common.ErrNotFound if there was none.
	RemoveCode(ctx context.Context, email models.Email) error
}
