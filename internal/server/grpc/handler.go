package grpc

import (
	"context"

	"github.com/dmitrijs2005/authsvc/internal/api"
	"github.com/dmitrijs2005/authsvc/internal/common"
	"github.com/dmitrijs2005/authsvc/internal/server/models"
	"github.com/dmitrijs2005/authsvc/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func (s *GRPCServer) Signup(ctx context.Context, req *api.SignupRequest) (*api.SignupResponse, error) {
	res, err := s.sessions.Signup(ctx, services.SignupRequest{
		Email:       req.Email,
		Password:    models.NewSecret(req.Password),
		Requires2FA: req.Requires2FA,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.SignupResponse{Message: res.Message}, nil
}

// loginResponse converts a result and, when a token was issued, also sets
// it as access_token response metadata.
func (s *GRPCServer) loginResponse(ctx context.Context, res *services.LoginResult) *api.LoginResponse {
	out := &api.LoginResponse{
		TwoFactorRequired: res.TwoFactorRequired,
		LoginAttemptID:    res.LoginAttemptID,
		Message:           res.Message,
	}
	if res.Token != "" {
		out.AccessToken = res.Token
		out.ExpiresAt = res.ExpiresAt.Unix()
		if err := grpc.SetHeader(ctx, metadata.Pairs(common.AccessTokenHeaderName, res.Token)); err != nil {
			s.logger.Warn(ctx, "cannot set access token header", "error", err)
		}
	}
	return out
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	res, err := s.sessions.Login(ctx, services.LoginRequest{Email: req.Email, Password: models.NewSecret(req.Password)})
	if err != nil {
		return nil, toStatus(err)
	}
	return s.loginResponse(ctx, res), nil
}

func (s *GRPCServer) Verify2FA(ctx context.Context, req *api.Verify2FARequest) (*api.LoginResponse, error) {
	res, err := s.sessions.Verify2FA(ctx, services.Verify2FARequest{
		Email:          req.Email,
		LoginAttemptID: req.LoginAttemptID,
		TwoFACode:      req.TwoFACode,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return s.loginResponse(ctx, res), nil
}

func (s *GRPCServer) Logout(ctx context.Context, _ *api.LogoutRequest) (*api.LogoutResponse, error) {
	res, err := s.sessions.Logout(ctx, accessTokenFromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.LogoutResponse{AlreadyRevoked: res.AlreadyRevoked}, nil
}

func (s *GRPCServer) VerifyToken(ctx context.Context, req *api.VerifyTokenRequest) (*api.VerifyTokenResponse, error) {
	token := req.Token
	if token == "" {
		token = accessTokenFromContext(ctx)
	}

	claims, err := s.sessions.VerifyToken(ctx, token)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.VerifyTokenResponse{Email: claims.Subject, ExpiresAt: claims.ExpiresAt.Unix()}, nil
}

func (s *GRPCServer) Ping(context.Context, *api.PingRequest) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}
