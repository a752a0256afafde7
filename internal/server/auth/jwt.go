// Package auth issues and verifies HS256 session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the session token lifetime when none is configured.
const DefaultTTL = 10 * time.Minute

// Claims carries sub (the email), exp, iat and a random jti so that two
// tokens issued in the same second differ.
type Claims struct {
	jwt.RegisteredClaims
}

// RevocationChecker is satisfied by bannedtokens.Repository.
type RevocationChecker interface {
	IsBanned(ctx context.Context, token string) (bool, error)
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret []byte, ttl time.Duration) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{secret: secret, ttl: ttl, now: time.Now}, nil
}

func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a new token for email.
func (s *TokenService) Issue(email string) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, common.Unexpected("sign token", err)
	}

	return token, claims, nil
}

// Decode verifies the signature, the algorithm and exp. Every failure wraps
// common.ErrInvalidToken; an expired token also wraps common.ErrTokenExpired.
func (s *TokenService) Decode(token string) (*Claims, error) {
	if token == "" {
		return nil, common.ErrMissingToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}

	return claims, nil
}

// Validate decodes token and then checks it against the revocation store.
// Revocation is consulted only for tokens that decode.
func (s *TokenService) Validate(ctx context.Context, token string, revoked RevocationChecker) (*Claims, error) {
	claims, err := s.Decode(token)
	if err != nil {
		return nil, err
	}

	banned, err := revoked.IsBanned(ctx, token)
	if err != nil {
		return nil, common.Unexpected("check revocation", err)
	}
	if banned {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenRevoked)
	}

	return claims, nil
}
