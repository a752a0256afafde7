package cli

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/client/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPassword(t *testing.T, pw string) *[]byte {
	t.Helper()
	orig := getPassword
	var last []byte
	getPassword = func(io.Writer) ([]byte, error) {
		last = []byte(pw)
		return last, nil
	}
	t.Cleanup(func() { getPassword = orig })
	return &last
}

func TestSignup(t *testing.T) {
	last := stubPassword(t, "Password123!")
	fc := &fakeClient{}
	app, out := newTestApp(fc, "user@example.com", "y")

	require.NoError(t, app.Signup(context.Background()))

	assert.Equal(t, "user@example.com", fc.signupEmail)
	assert.Equal(t, "Password123!", fc.signupPass)
	assert.True(t, fc.signup2FA)
	assert.Contains(t, out.String(), "User created successfully!")
	assert.Equal(t, make([]byte, len("Password123!")), *last, "password must be wiped")
}

func TestSignup_Error(t *testing.T) {
	stubPassword(t, "Password123!")
	fc := &fakeClient{signupErr: client.ErrAlreadyExists}
	app, _ := newTestApp(fc, "user@example.com", "n")

	err := app.Signup(context.Background())
	assert.ErrorIs(t, err, client.ErrAlreadyExists)
	assert.False(t, fc.signup2FA)
}

func TestLogin_PasswordOnly(t *testing.T) {
	stubPassword(t, "Password123!")
	fc := &fakeClient{loginOut: &client.LoginOutcome{}}
	app, out := newTestApp(fc, "user@example.com")

	require.NoError(t, app.Login(context.Background()))

	assert.True(t, app.isLoggedIn())
	assert.Equal(t, "(user@example.com)", app.getStatus())
	assert.Contains(t, out.String(), "Login successful")
	assert.Nil(t, app.pending)
}

func TestLogin_TwoFactorImmediate(t *testing.T) {
	stubPassword(t, "Password123!")
	fc := &fakeClient{loginOut: &client.LoginOutcome{TwoFactorRequired: true, LoginAttemptID: "att", Message: "2FA required"}}
	app, out := newTestApp(fc, "user@example.com", "123456")

	require.NoError(t, app.Login(context.Background()))

	assert.Equal(t, []string{"user@example.com", "att", "123456"}, fc.verifyArgs)
	assert.True(t, app.isLoggedIn())
	assert.Nil(t, app.pending)
	assert.Contains(t, out.String(), "2FA required")
}

func TestLogin_TwoFactorDeferred(t *testing.T) {
	stubPassword(t, "Password123!")
	fc := &fakeClient{loginOut: &client.LoginOutcome{TwoFactorRequired: true, LoginAttemptID: "att"}, verifyErr: client.ErrUnauthorized}
	app, _ := newTestApp(fc, "user@example.com", "", "000000", "123456")

	require.NoError(t, app.Login(context.Background()))
	assert.False(t, app.isLoggedIn())
	require.NotNil(t, app.pending)

	assert.ErrorIs(t, app.Verify(context.Background()), client.ErrUnauthorized)
	require.NotNil(t, app.pending, "a failed code keeps the challenge")

	fc.verifyErr = nil
	require.NoError(t, app.Verify(context.Background()))
	assert.True(t, app.isLoggedIn())
	assert.Nil(t, app.pending)
	assert.Equal(t, "123456", fc.verifyArgs[2])
}

func TestVerify_NoChallenge(t *testing.T) {
	app, _ := newTestApp(&fakeClient{})
	assert.ErrorIs(t, app.Verify(context.Background()), errNoChallenge)
}

func TestLogin_Unavailable(t *testing.T) {
	stubPassword(t, "Password123!")
	fc := &fakeClient{loginErr: client.ErrUnavailable}
	app, _ := newTestApp(fc, "user@example.com")

	assert.ErrorIs(t, app.Login(context.Background()), client.ErrUnavailable)
	assert.Equal(t, ModeOffline, app.mode)
}

func TestLogout(t *testing.T) {
	fc := &fakeClient{loggedIn: true}
	app, out := newTestApp(fc)
	app.email = "user@example.com"

	require.NoError(t, app.Logout(context.Background()))
	assert.False(t, app.isLoggedIn())
	assert.Empty(t, app.email)
	assert.Contains(t, out.String(), "Logged out")

	fc.logoutRevoked = true
	require.NoError(t, app.Logout(context.Background()))
	assert.Contains(t, out.String(), "Session was already revoked")

	fc.logoutErr = client.ErrNotLoggedIn
	assert.ErrorIs(t, app.Logout(context.Background()), client.ErrNotLoggedIn)
}

func TestWhoAmI(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	fc := &fakeClient{whoami: &client.Identity{Email: "user@example.com", ExpiresAt: exp}}
	app, out := newTestApp(fc)

	require.NoError(t, app.WhoAmI(context.Background()))
	assert.Contains(t, out.String(), "user@example.com")
	assert.Contains(t, out.String(), exp.Format(time.RFC3339))

	fc.whoamiErr = client.ErrUnauthorized
	assert.ErrorIs(t, app.WhoAmI(context.Background()), client.ErrUnauthorized)
}

func TestPing_SwitchesMode(t *testing.T) {
	fc := &fakeClient{}
	app, out := newTestApp(fc)

	require.NoError(t, app.Ping(context.Background()))
	assert.Equal(t, ModeOnline, app.mode)
	assert.Contains(t, out.String(), "pong")

	fc.pingErr = client.ErrUnavailable
	assert.ErrorIs(t, app.Ping(context.Background()), client.ErrUnavailable)
	assert.Equal(t, ModeOffline, app.mode)
	assert.Contains(t, out.String(), "Switched to offline mode")
}
