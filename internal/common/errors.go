// Package common defines shared constants and sentinel errors used across
// the client and server layers of authsvc. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

var (
	// Input errors. Parsers in the models package return values that unwrap
	// to ErrValidation.
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("user already exists")

	// Authentication failures. ErrIncorrectCredentials never says which
	// factor was wrong.
	ErrIncorrectCredentials = errors.New("incorrect credentials")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrMissingToken = errors.New("missing token")

	// Backend failures.
	ErrUnexpected = errors.New("unexpected error")
)

// CodeUnexpected is the oops error code attached by Unexpected.
const CodeUnexpected = "UNEXPECTED"

// Unexpected wraps a backend failure so that errors.Is(err, ErrUnexpected)
// holds while the cause and the failing operation stay available to logs.
func Unexpected(op string, err error) error {
	if err == nil {
		return nil
	}
	return oops.
		Code(CodeUnexpected).
		With("operation", op).
		Wrap(fmt.Errorf("%w: %w", ErrUnexpected, err))
}
