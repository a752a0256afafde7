package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/api"
	"github.com/dmitrijs2005/authsvc/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// authAPI is the subset of *api.AuthServiceClient used here.
type authAPI interface {
	Signup(ctx context.Context, in *api.SignupRequest, opts ...grpc.CallOption) (*api.SignupResponse, error)
	Login(ctx context.Context, in *api.LoginRequest, opts ...grpc.CallOption) (*api.LoginResponse, error)
	Verify2FA(ctx context.Context, in *api.Verify2FARequest, opts ...grpc.CallOption) (*api.LoginResponse, error)
	Logout(ctx context.Context, in *api.LogoutRequest, opts ...grpc.CallOption) (*api.LogoutResponse, error)
	VerifyToken(ctx context.Context, in *api.VerifyTokenRequest, opts ...grpc.CallOption) (*api.VerifyTokenResponse, error)
	Ping(ctx context.Context, in *api.PingRequest, opts ...grpc.CallOption) (*api.PingResponse, error)
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      authAPI

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) setToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

// accessTokenInterceptor attaches the current session token, if any, to
// Logout and VerifyToken calls.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	switch method {
	case api.MethodLogout, api.MethodVerifyToken:
		if token := s.token(); token != "" {
			ctx = withAccessToken(ctx, token)
		}
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func NewAuthClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewAuthServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) LoggedIn() bool {
	return s.token() != ""
}

func (s *GRPCClient) Signup(ctx context.Context, email string, password []byte, requires2FA bool) (string, error) {
	resp, err := s.client.Signup(ctx, &api.SignupRequest{Email: email, Password: string(password), Requires2FA: requires2FA})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.Message, nil
}

func (s *GRPCClient) Login(ctx context.Context, email string, password []byte) (*LoginOutcome, error) {
	resp, err := s.client.Login(ctx, &api.LoginRequest{Email: email, Password: string(password)})
	if err != nil {
		return nil, s.mapError(err)
	}

	if resp.AccessToken != "" {
		s.setToken(resp.AccessToken)
	}
	return &LoginOutcome{
		TwoFactorRequired: resp.TwoFactorRequired,
		LoginAttemptID:    resp.LoginAttemptID,
		Message:           resp.Message,
	}, nil
}

func (s *GRPCClient) Verify2FA(ctx context.Context, email, attemptID, code string) error {
	resp, err := s.client.Verify2FA(ctx, &api.Verify2FARequest{Email: email, LoginAttemptID: attemptID, TwoFACode: code})
	if err != nil {
		return s.mapError(err)
	}
	s.setToken(resp.AccessToken)
	return nil
}

// Logout revokes the current token and forgets it.
func (s *GRPCClient) Logout(ctx context.Context) (bool, error) {
	if !s.LoggedIn() {
		return false, ErrNotLoggedIn
	}
	resp, err := s.client.Logout(ctx, &api.LogoutRequest{})
	if err != nil {
		return false, s.mapError(err)
	}
	s.setToken("")
	return resp.AlreadyRevoked, nil
}

func (s *GRPCClient) WhoAmI(ctx context.Context) (*Identity, error) {
	if !s.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	resp, err := s.client.VerifyToken(ctx, &api.VerifyTokenRequest{})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &Identity{Email: resp.Email, ExpiresAt: time.Unix(resp.ExpiresAt, 0)}, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	_, err := s.client.Ping(ctx, &api.PingRequest{})
	return s.mapError(err)
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.AlreadyExists:
		return ErrAlreadyExists
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidInput, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
