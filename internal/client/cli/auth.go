package cli

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/client/client"
	"github.com/dmitrijs2005/authsvc/internal/common"
)

// Input indirections, swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getYesNo      = GetYesNo
)

var errNoChallenge = errors.New("no pending 2FA challenge, run login first")

func (a *App) Signup(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	twoFA, err := getYesNo(a.reader, "Require 2FA codes by email?", a.out)
	if err != nil {
		return err
	}

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	msg, err := a.client.Signup(ctx, email, password, twoFA)
	if err != nil {
		return err
	}
	a.printf("%s\n", msg)
	return nil
}

// Login authenticates with email and password. When the account needs a
// second factor the challenge is remembered and the code is asked for
// right away; an empty code defers it to the verify command.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	reqCtx, cancel := a.requestContext(ctx)
	out, err := a.client.Login(reqCtx, email, password)
	cancel()
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.setMode(ModeOffline)
		}
		return err
	}

	a.mu.Lock()
	a.email = email
	a.pending = nil
	if out.TwoFactorRequired {
		a.pending = &pendingChallenge{email: email, attemptID: out.LoginAttemptID}
	}
	a.mu.Unlock()

	if !out.TwoFactorRequired {
		a.printf("Login successful\n")
		return nil
	}

	a.printf("%s: check your email for the code\n", out.Message)
	return a.Verify(ctx)
}

// Verify submits the code for the pending challenge.
func (a *App) Verify(ctx context.Context) error {
	a.mu.Lock()
	pending := a.pending
	a.mu.Unlock()
	if pending == nil {
		return errNoChallenge
	}

	code, err := getSimpleText(a.reader, "Enter 2FA code (empty to enter it later with 'verify')", a.out)
	if err != nil {
		return err
	}
	if code == "" {
		return nil
	}

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	if err := a.client.Verify2FA(ctx, pending.email, pending.attemptID, code); err != nil {
		return err
	}

	a.mu.Lock()
	a.pending = nil
	a.mu.Unlock()

	a.printf("Login successful\n")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	alreadyRevoked, err := a.client.Logout(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.email = ""
	a.mu.Unlock()

	if alreadyRevoked {
		a.printf("Session was already revoked\n")
	} else {
		a.printf("Logged out\n")
	}
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	id, err := a.client.WhoAmI(ctx)
	if err != nil {
		return err
	}
	a.printf("%s (session expires %s)\n", id.Email, id.ExpiresAt.Format(time.RFC3339))
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	reqCtx, cancel := a.requestContext(ctx)
	defer cancel()

	start := time.Now()
	if err := a.client.Ping(reqCtx); err != nil {
		a.setMode(ModeOffline)
		return err
	}
	a.setMode(ModeOnline)
	a.printf("pong (%s)\n", time.Since(start).Round(time.Millisecond))
	return nil
}
