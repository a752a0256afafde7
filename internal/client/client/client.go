package client

import (
	"context"
	"time"
)

// LoginOutcome is the result of a password login. With TwoFactorRequired
// set the session is not active until Verify2FA succeeds.
type LoginOutcome struct {
	TwoFactorRequired bool
	LoginAttemptID    string
	Message           string
}

// Identity is what the server reports for the current session token.
type Identity struct {
	Email     string
	ExpiresAt time.Time
}

type Client interface {
	Close() error
	Signup(ctx context.Context, email string, password []byte, requires2FA bool) (string, error)
	Login(ctx context.Context, email string, password []byte) (*LoginOutcome, error)
	Verify2FA(ctx context.Context, email, attemptID, code string) error
	Logout(ctx context.Context) (alreadyRevoked bool, err error)
	WhoAmI(ctx context.Context) (*Identity, error)
	Ping(ctx context.Context) error
	LoggedIn() bool
}
