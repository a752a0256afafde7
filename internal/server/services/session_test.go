package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/common"
	"github.com/dmitrijs2005/authsvc/internal/cryptox"
	"github.com/dmitrijs2005/authsvc/internal/logging"
	"github.com/dmitrijs2005/authsvc/internal/server/auth"
	"github.com/dmitrijs2005/authsvc/internal/server/models"
	"github.com/dmitrijs2005/authsvc/internal/server/repositories/bannedtokens"
	"github.com/dmitrijs2005/authsvc/internal/server/repositories/twofacodes"
	"github.com/dmitrijs2005/authsvc/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"
)

// --- helpers ---

type testStores struct {
	users  users.Repository
	banned bannedtokens.Repository
	codes  twofacodes.Repository
}

func (s testStores) Users() users.Repository               { return s.users }
func (s testStores) BannedTokens() bannedtokens.Repository { return s.banned }
func (s testStores) TwoFACodes() twofacodes.Repository     { return s.codes }

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to models.Email, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to.String(), subject: subject, body: body})
	return nil
}

func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	body := m.sent[len(m.sent)-1].body
	code, ok := strings.CutPrefix(body, "Your 2FA code is: ")
	require.True(t, ok, body)
	return code
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingMetrics) RecordFlow(flow, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[flow+"/"+outcome]++
}

type fixture struct {
	svc     *SessionService
	mail    *fakeMailer
	metrics *countingMetrics
	stores  testStores
	clock   *abtime.ManualTime
	logs    *bytes.Buffer
}

var cheapParams = cryptox.Params{Memory: 64, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := abtime.NewManual()
	stores := testStores{
		users:  users.NewMemoryRepository(cryptox.NewArgon2idHasher(cheapParams, cryptox.NewPool(4))),
		banned: bannedtokens.NewMemoryRepository(nil),
		codes:  twofacodes.NewMemoryRepository(10*time.Minute, clock),
	}
	return newFixtureWith(t, stores, clock)
}

func newFixtureWith(t *testing.T, stores testStores, clock *abtime.ManualTime) *fixture {
	t.Helper()
	tokens, err := auth.NewTokenService([]byte("test-secret"), 10*time.Minute)
	require.NoError(t, err)

	var logs bytes.Buffer
	f := &fixture{mail: &fakeMailer{}, metrics: &countingMetrics{}, stores: stores, clock: clock, logs: &logs}
	f.svc = NewSessionService(stores, tokens, f.mail, logging.New("test", "json", &logs), WithMetrics(f.metrics))
	return f
}

func (f *fixture) signup(t *testing.T, email, password string, twoFA bool) {
	t.Helper()
	res, err := f.svc.Signup(context.Background(), SignupRequest{Email: email, Password: models.NewSecret(password), Requires2FA: twoFA})
	require.NoError(t, err)
	assert.Equal(t, SignupMessage, res.Message)
}

func (f *fixture) login(email, password string) (*LoginResult, error) {
	return f.svc.Login(context.Background(), LoginRequest{Email: email, Password: models.NewSecret(password)})
}

// --- signup ---

func TestSignup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.signup(t, "a@b.co", "Password123!", false)

	_, err := f.svc.Signup(ctx, SignupRequest{Email: "a@b.co", Password: models.NewSecret("Other-Pass1")})
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	_, err = f.svc.Signup(ctx, SignupRequest{Email: "ab.co", Password: models.NewSecret("Password123!")})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.ErrorIs(t, err, models.ErrEmailMissingAt)

	_, err = f.svc.Signup(ctx, SignupRequest{Email: "c@b.co", Password: models.NewSecret("password123!")})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.ErrorIs(t, err, models.ErrPasswordNoUpper)

	assert.Equal(t, 1, f.metrics.counts["Signup/success"])
	assert.Equal(t, 1, f.metrics.counts["Signup/already_exists"])
	assert.Equal(t, 2, f.metrics.counts["Signup/invalid_input"])
}

func TestSignup_NeverLogsPassword(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@b.co", "Password123!", false)
	_, _ = f.login("a@b.co", "Password123?")
	assert.NotContains(t, f.logs.String(), "Password123")
}

// --- login ---

func TestLogin_WithoutTwoFA(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@b.co", "Password123!", false)

	res, err := f.login("a@b.co", "Password123!")
	require.NoError(t, err)
	assert.False(t, res.TwoFactorRequired)
	assert.NotEmpty(t, res.Token)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), res.ExpiresAt, 5*time.Second)
	assert.Empty(t, f.mail.sent)

	claims, err := f.svc.VerifyToken(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", claims.Subject)

	assert.NotContains(t, f.logs.String(), res.Token)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@b.co", "Password123!", false)

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{name: "wrong password", email: "a@b.co", password: "Password123?", want: common.ErrIncorrectCredentials},
		{name: "unknown email", email: "x@b.co", password: "Password123!", want: common.ErrIncorrectCredentials},
		{name: "malformed email", email: "a@@b.co", password: "Password123!", want: common.ErrInvalidCredentials},
		{name: "weak password", email: "a@b.co", password: "short", want: common.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.login(tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, res)
		})
	}
}

// --- 2FA ---

func TestTwoFA_FullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.co", "Password123!", true)

	res, err := f.login("a@b.co", "Password123!")
	require.NoError(t, err)
	assert.True(t, res.TwoFactorRequired)
	assert.Equal(t, TwoFAMessage, res.Message)
	assert.Empty(t, res.Token)
	_, err = models.ParseLoginAttemptID(res.LoginAttemptID)
	require.NoError(t, err)

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "a@b.co", f.mail.sent[0].to)
	assert.Equal(t, TwoFASubject, f.mail.sent[0].subject)
	code := f.mail.lastCode(t)
	assert.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = f.svc.Verify2FA(ctx, Verify2FARequest{Email: "a@b.co", LoginAttemptID: res.LoginAttemptID, TwoFACode: wrong})
	assert.ErrorIs(t, err, common.ErrIncorrectCredentials)

	_, err = f.svc.Verify2FA(ctx, Verify2FARequest{Email: "a@b.co", LoginAttemptID: models.NewLoginAttemptID().String(), TwoFACode: code})
	assert.ErrorIs(t, err, common.ErrIncorrectCredentials)

	done, err := f.svc.Verify2FA(ctx, Verify2FARequest{Email: "a@b.co", LoginAttemptID: res.LoginAttemptID, TwoFACode: code})
	require.NoError(t, err, "mismatches keep the challenge")
	assert.NotEmpty(t, done.Token)

	_, err = f.svc.Verify2FA(ctx, Verify2FARequest{Email: "a@b.co", LoginAttemptID: res.LoginAttemptID, TwoFACode: code})
	assert.ErrorIs(t, err, common.ErrIncorrectCredentials, "code is single use")

	assert.NotContains(t, f.logs.String(), code)
}

func TestTwoFA_NewLoginReplacesChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.co", "Password123!", true)

	first, err := f.login("a@b.co", "Password123!")
	require.NoError(t, err)
	firstCode := f.mail.lastCode(t)

	second, err := f.login("a@b.co", "Password123!")
	require.NoError(t, err)
	secondCode := f.mail.lastCode(t)
	assert.NotEqual(t, first.LoginAttemptID, second.LoginAttemptID)

	_, err = f.svc.Verify2FA(ctx, Verify2FARequest{Email: "a@b.co", LoginAttemptID: first.LoginAttemptID, TwoFACode: firstCode})
	assert.ErrorIs(t, err, common.ErrIncorrectCredentials)

	_, err = f.svc.Verify2FA(ctx, Verify2FARequest{Email: "a@b.co", LoginAttemptID: second.LoginAttemptID, TwoFACode: secondCode})
	assert.NoError(t, err)
}

func TestTwoFA_Expired(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@b.co", "Password123!", true)

	res, err := f.login("a@b.co", "Password123!")
	require.NoError(t, err)
	code := f.mail.lastCode(t)

	f.clock.Advance(10*time.Minute + time.Second)

	_, err = f.svc.Verify2FA(context.Background(), Verify2FARequest{Email: "a@b.co", LoginAttemptID: res.LoginAttemptID, TwoFACode: code})
	assert.ErrorIs(t, err, common.ErrIncorrectCredentials)
}

func TestTwoFA_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := models.NewLoginAttemptID().String()

	for name, req := range map[string]Verify2FARequest{
		"email":   {Email: "nope", LoginAttemptID: id, TwoFACode: "123456"},
		"attempt": {Email: "a@b.co", LoginAttemptID: "not-a-uuid", TwoFACode: "123456"},
		"code":    {Email: "a@b.co", LoginAttemptID: id, TwoFACode: "12345a"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Verify2FA(ctx, req)
			assert.ErrorIs(t, err, common.ErrInvalidCredentials)
		})
	}

	_, err := f.svc.Verify2FA(ctx, Verify2FARequest{Email: "a@b.co", LoginAttemptID: id, TwoFACode: "123456"})
	assert.ErrorIs(t, err, common.ErrIncorrectCredentials, "no challenge stored")
}

func TestTwoFA_ConcurrentVerifySingleWinner(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@b.co", "Password123!", true)

	res, err := f.login("a@b.co", "Password123!")
	require.NoError(t, err)
	req := Verify2FARequest{Email: "a@b.co", LoginAttemptID: res.LoginAttemptID, TwoFACode: f.mail.lastCode(t)}

	var ok, rejected atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Verify2FA(context.Background(), req)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, common.ErrIncorrectCredentials):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(15), rejected.Load())
}

func TestTwoFA_MailFailure(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@b.co", "Password123!", true)
	f.mail.err = errors.New("smtp down")

	_, err := f.login("a@b.co", "Password123!")
	assert.ErrorIs(t, err, common.ErrUnexpected)
	assert.Equal(t, 1, f.metrics.counts["Login/error"])
	assert.Contains(t, f.logs.String(), "smtp down")
	assert.Contains(t, f.logs.String(), `"code":"UNEXPECTED"`)
}

// --- logout / verify ---

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.co", "Password123!", false)

	res, err := f.login("a@b.co", "Password123!")
	require.NoError(t, err)

	out, err := f.svc.Logout(ctx, res.Token)
	require.NoError(t, err)
	assert.False(t, out.AlreadyRevoked)

	_, err = f.svc.VerifyToken(ctx, res.Token)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.ErrorIs(t, err, common.ErrTokenRevoked)

	again, err := f.svc.Logout(ctx, res.Token)
	require.NoError(t, err)
	assert.True(t, again.AlreadyRevoked)

	other, err := f.login("a@b.co", "Password123!")
	require.NoError(t, err)
	_, err = f.svc.VerifyToken(ctx, other.Token)
	assert.NoError(t, err, "revocation is per token")
}

func TestLogout_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Logout(ctx, "")
	assert.ErrorIs(t, err, common.ErrMissingToken)

	_, err = f.svc.Logout(ctx, "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = f.svc.VerifyToken(ctx, "")
	assert.ErrorIs(t, err, common.ErrMissingToken)

	_, err = f.svc.VerifyToken(ctx, "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestConcurrentLogoutSingleInsert(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@b.co", "Password123!", false)
	res, err := f.login("a@b.co", "Password123!")
	require.NoError(t, err)

	var fresh atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := f.svc.Logout(context.Background(), res.Token)
			if err != nil {
				t.Errorf("logout: %v", err)
				return
			}
			if !out.AlreadyRevoked {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), fresh.Load())
}

// --- backend failures ---

type failingUsers struct{ users.Repository }

func (failingUsers) AddUser(context.Context, models.User) error { return errors.New("db error: down") }
func (failingUsers) Authenticate(context.Context, models.Email, models.Password) (*models.User, error) {
	return nil, errors.New("db error: down")
}

type failingBanned struct{ bannedtokens.Repository }

func (failingBanned) IsBanned(context.Context, string) (bool, error) {
	return false, errors.New("redis error: down")
}
func (failingBanned) BanIfAbsent(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("redis error: down")
}

func TestBackendFailuresAreUnexpected(t *testing.T) {
	clock := abtime.NewManual()
	base := newFixture(t)
	stores := testStores{users: failingUsers{}, banned: failingBanned{}, codes: base.stores.codes}
	f := newFixtureWith(t, stores, clock)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, SignupRequest{Email: "a@b.co", Password: models.NewSecret("Password123!")})
	assert.ErrorIs(t, err, common.ErrUnexpected)

	_, err = f.login("a@b.co", "Password123!")
	assert.ErrorIs(t, err, common.ErrUnexpected)
	assert.NotErrorIs(t, err, common.ErrIncorrectCredentials)

	token, _, err := f.svc.tokens.Issue("a@b.co")
	require.NoError(t, err)

	_, err = f.svc.Logout(ctx, token)
	assert.ErrorIs(t, err, common.ErrUnexpected)

	_, err = f.svc.VerifyToken(ctx, token)
	assert.ErrorIs(t, err, common.ErrUnexpected)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "error", Outcome(common.Unexpected("op", errors.New("x"))))
	assert.Equal(t, "error", Outcome(errors.New("untyped")))
	assert.Equal(t, "revoked_token", Outcome(errors.Join(common.ErrInvalidToken, common.ErrTokenRevoked)))
	assert.Equal(t, "expired_token", Outcome(errors.Join(common.ErrInvalidToken, common.ErrTokenExpired)))
	assert.Equal(t, "invalid_token", Outcome(common.ErrInvalidToken))
	assert.Equal(t, "missing_token", Outcome(common.ErrMissingToken))
	assert.Equal(t, "invalid_input", Outcome(models.ErrEmailEmpty))
}
