package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/client/client"
	"github.com/dmitrijs2005/authsvc/internal/client/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeClient struct {
	mu sync.Mutex

	loggedIn bool
	closed   bool

	signupEmail string
	signupPass  string
	signup2FA   bool
	signupErr   error

	loginOut *client.LoginOutcome
	loginErr error

	verifyArgs []string
	verifyErr  error

	logoutRevoked bool
	logoutErr     error

	whoami    *client.Identity
	whoamiErr error

	pingErr   error
	pingCount int
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) Signup(_ context.Context, email string, password []byte, twoFA bool) (string, error) {
	f.signupEmail, f.signupPass, f.signup2FA = email, string(password), twoFA
	if f.signupErr != nil {
		return "", f.signupErr
	}
	return "User created successfully!", nil
}

func (f *fakeClient) Login(_ context.Context, _ string, _ []byte) (*client.LoginOutcome, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if !f.loginOut.TwoFactorRequired {
		f.setLoggedIn(true)
	}
	return f.loginOut, nil
}

func (f *fakeClient) Verify2FA(_ context.Context, email, attemptID, code string) error {
	f.verifyArgs = []string{email, attemptID, code}
	if f.verifyErr != nil {
		return f.verifyErr
	}
	f.setLoggedIn(true)
	return nil
}

func (f *fakeClient) Logout(context.Context) (bool, error) {
	if f.logoutErr != nil {
		return false, f.logoutErr
	}
	f.setLoggedIn(false)
	return f.logoutRevoked, nil
}

func (f *fakeClient) WhoAmI(context.Context) (*client.Identity, error) {
	return f.whoami, f.whoamiErr
}

func (f *fakeClient) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingCount++
	return f.pingErr
}

func (f *fakeClient) LoggedIn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedIn
}

func (f *fakeClient) setLoggedIn(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedIn = v
}

func testConfig() *config.Config {
	return &config.Config{ServerEndpointAddr: "bufnet", OnlineCheckInterval: time.Hour, RequestTimeout: time.Second}
}

func newTestApp(fc *fakeClient, input ...string) (*App, *syncBuffer) {
	out := &syncBuffer{}
	in := strings.NewReader(strings.Join(input, "\n") + "\n")
	return newApp(testConfig(), fc, in, out), out
}
