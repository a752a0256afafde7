// Package services contains server-side business logic. This file implements
// SessionService, which drives signup, login with an optional emailed second
// factor, token verification and logout.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/common"
	"github.com/dmitrijs2005/authsvc/internal/logging"
	"github.com/dmitrijs2005/authsvc/internal/server/auth"
	"github.com/dmitrijs2005/authsvc/internal/server/email"
	"github.com/dmitrijs2005/authsvc/internal/server/models"
	"github.com/dmitrijs2005/authsvc/internal/server/repositories/bannedtokens"
	"github.com/dmitrijs2005/authsvc/internal/server/repositories/twofacodes"
	"github.com/dmitrijs2005/authsvc/internal/server/repositories/users"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	SignupMessage = "User created successfully!"
	TwoFAMessage  = "2FA required"

	TwoFASubject = "2FA Code"
)

// Flow names, used for spans, metrics and logs.
const (
	FlowSignup      = "Signup"
	FlowLogin       = "Login"
	FlowVerify2FA   = "Verify2FA"
	FlowLogout      = "Logout"
	FlowVerifyToken = "VerifyToken"
)

// Stores is the set of repositories a SessionService needs. It is
// satisfied by repomanager.RepositoryManager.
type Stores interface {
	Users() users.Repository
	BannedTokens() bannedtokens.Repository
	TwoFACodes() twofacodes.Repository
}

// MetricsRecorder counts flow outcomes.
type MetricsRecorder interface {
	RecordFlow(flow, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) RecordFlow(string, string) {}

type SignupRequest struct {
	Email       string
	Password    models.Secret
	Requires2FA bool
}

type SignupResult struct {
	Message string
}

type LoginRequest struct {
	Email    string
	Password models.Secret
}

// LoginResult carries either a session token or, when the account needs a
// second factor, the attempt id to pass to Verify2FA.
type LoginResult struct {
	Token             string
	ExpiresAt         time.Time
	TwoFactorRequired bool
	LoginAttemptID    string
	Message           string
}

type Verify2FARequest struct {
	Email          string
	LoginAttemptID string
	TwoFACode      string
}

type LogoutResult struct {
	AlreadyRevoked bool
}

type SessionService struct {
	users   users.Repository
	banned  bannedtokens.Repository
	codes   twofacodes.Repository
	tokens  *auth.TokenService
	mail    email.Client
	logger  logging.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer
}

type Option func(*SessionService)

func WithMetrics(m MetricsRecorder) Option {
	return func(s *SessionService) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *SessionService) {
		if t != nil {
			s.tracer = t
		}
	}
}

func NewSessionService(stores Stores, tokens *auth.TokenService, mail email.Client, logger logging.Logger, opts ...Option) *SessionService {
	s := &SessionService{
		users:   stores.Users(),
		banned:  stores.BannedTokens(),
		codes:   stores.TwoFACodes(),
		tokens:  tokens,
		mail:    mail,
		logger:  logger.With("module", "session"),
		metrics: noopMetrics{},
		tracer:  otel.Tracer("authsvc/session"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Outcome classifies a flow result for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, common.ErrUnexpected):
		return "error"
	case errors.Is(err, common.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, common.ErrTokenRevoked):
		return "revoked_token"
	case errors.Is(err, common.ErrTokenExpired):
		return "expired_token"
	case errors.Is(err, common.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, common.ErrIncorrectCredentials):
		return "incorrect_credentials"
	case errors.Is(err, common.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrValidation):
		return "invalid_input"
	default:
		return "error"
	}
}

// observe runs fn inside a span and records its outcome.
func (s *SessionService) observe(ctx context.Context, flow string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := s.tracer.Start(ctx, "session."+flow, trace.WithAttributes(attrs...))
	defer span.End()

	err := fn(ctx)
	outcome := Outcome(err)

	span.SetAttributes(attribute.String("session.outcome", outcome))
	s.metrics.RecordFlow(flow, outcome)

	if outcome == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected error")
		logging.LogError(ctx, s.logger, "session flow failed", err, "flow", flow)
		return err
	}

	s.logger.Info(ctx, "session flow", "flow", flow, "outcome", outcome)
	return err
}

// unexpected passes known sentinels through and wraps anything else.
func unexpected(op string, err error) error {
	if errors.Is(err, common.ErrUnexpected) {
		return err
	}
	return common.Unexpected(op, err)
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %w", common.ErrInvalidCredentials, err)
}

// Signup validates the input and creates the user.
func (s *SessionService) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	var res *SignupResult

	err := s.observe(ctx, FlowSignup, func(ctx context.Context) error {
		e, err := models.ParseEmail(req.Email)
		if err != nil {
			return invalidInput(err)
		}
		p, err := models.ParsePassword(req.Password)
		if err != nil {
			return invalidInput(err)
		}

		err = s.users.AddUser(ctx, models.User{Email: e, Password: p, Requires2FA: req.Requires2FA})
		if err != nil {
			if errors.Is(err, common.ErrAlreadyExists) {
				return common.ErrAlreadyExists
			}
			return unexpected("add user", err)
		}

		res = &SignupResult{Message: SignupMessage}
		return nil
	}, attribute.Bool("session.requires_2fa", req.Requires2FA))

	if err != nil {
		return nil, err
	}
	return res, nil
}

// Login authenticates the user. Accounts without 2FA get a token at once;
// otherwise a challenge is stored and its code is emailed.
func (s *SessionService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var res *LoginResult

	err := s.observe(ctx, FlowLogin, func(ctx context.Context) error {
		e, err := models.ParseEmail(req.Email)
		if err != nil {
			return invalidInput(err)
		}
		p, err := models.ParsePassword(req.Password)
		if err != nil {
			return invalidInput(err)
		}

		u, err := s.users.Authenticate(ctx, e, p)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrInvalidCredentials) {
				return common.ErrIncorrectCredentials
			}
			return unexpected("authenticate", err)
		}

		if !u.Requires2FA {
			res, err = s.issue(e)
			return err
		}

		res, err = s.startChallenge(ctx, e)
		return err
	})

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SessionService) issue(e models.Email) (*LoginResult, error) {
	token, claims, err := s.tokens.Issue(e.String())
	if err != nil {
		return nil, unexpected("issue token", err)
	}
	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *SessionService) startChallenge(ctx context.Context, e models.Email) (*LoginResult, error) {
	attempt := models.NewLoginAttemptID()
	code, err := models.NewTwoFACode()
	if err != nil {
		return nil, unexpected("generate 2fa code", err)
	}

	if err := s.codes.AddCode(ctx, e, attempt, code); err != nil {
		return nil, unexpected("store 2fa code", err)
	}

	body := fmt.Sprintf("Your 2FA code is: %s", code.Expose())
	if err := s.mail.Send(ctx, e, TwoFASubject, body); err != nil {
		return nil, unexpected("send 2fa email", err)
	}

	return &LoginResult{
		TwoFactorRequired: true,
		LoginAttemptID:    attempt.String(),
		Message:           TwoFAMessage,
	}, nil
}

// Verify2FA completes a challenged login. A challenge is consumed by at
// most one successful call.
func (s *SessionService) Verify2FA(ctx context.Context, req Verify2FARequest) (*LoginResult, error) {
	var res *LoginResult

	err := s.observe(ctx, FlowVerify2FA, func(ctx context.Context) error {
		e, err := models.ParseEmail(req.Email)
		if err != nil {
			return invalidInput(err)
		}
		attempt, err := models.ParseLoginAttemptID(req.LoginAttemptID)
		if err != nil {
			return invalidInput(err)
		}
		code, err := models.ParseTwoFACode(req.TwoFACode)
		if err != nil {
			return invalidInput(err)
		}

		storedAttempt, storedCode, err := s.codes.GetCode(ctx, e)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrIncorrectCredentials
			}
			return unexpected("get 2fa code", err)
		}

		attemptOK := subtle.ConstantTimeCompare([]byte(attempt.String()), []byte(storedAttempt.String())) == 1
		codeOK := code.Equal(storedCode)
		if !attemptOK || !codeOK {
			return common.ErrIncorrectCredentials
		}

		if err := s.codes.RemoveCode(ctx, e); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrIncorrectCredentials
			}
			return unexpected("remove 2fa code", err)
		}

		res, err = s.issue(e)
		return err
	})

	if err != nil {
		return nil, err
	}
	return res, nil
}

// Logout revokes token until it expires. Revoking an already revoked,
// still valid token succeeds and reports AlreadyRevoked.
func (s *SessionService) Logout(ctx context.Context, token string) (*LogoutResult, error) {
	var res *LogoutResult

	err := s.observe(ctx, FlowLogout, func(ctx context.Context) error {
		if token == "" {
			return common.ErrMissingToken
		}

		claims, err := s.tokens.Decode(token)
		if err != nil {
			return err
		}

		inserted, err := s.banned.BanIfAbsent(ctx, token, claims.ExpiresAt.Time)
		if err != nil {
			return unexpected("ban token", err)
		}

		res = &LogoutResult{AlreadyRevoked: !inserted}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return res, nil
}

// VerifyToken checks that token decodes and is not revoked.
func (s *SessionService) VerifyToken(ctx context.Context, token string) (*auth.Claims, error) {
	var claims *auth.Claims

	err := s.observe(ctx, FlowVerifyToken, func(ctx context.Context) error {
		if token == "" {
			return common.ErrMissingToken
		}
		var err error
		claims, err = s.tokens.Validate(ctx, token, s.banned)
		return err
	})

	if err != nil {
		return nil, err
	}
	return claims, nil
}
