package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authsvc/internal/common"
	"github.com/dmitrijs2005/authsvc/internal/server/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps a session error to a gRPC status. Unexpected failures
// never expose their cause.
func toStatus(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, common.ErrUnexpected):
		return status.Error(codes.Internal, "internal error")
	case errors.Is(err, common.ErrMissingToken):
		return status.Error(codes.InvalidArgument, "missing token")
	case errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenRevoked):
		// Callers get one message whatever the token failure was.
		return status.Error(codes.Unauthenticated, "invalid token")
	case errors.Is(err, common.ErrIncorrectCredentials):
		return status.Error(codes.Unauthenticated, "incorrect credentials")
	case errors.Is(err, common.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "user already exists")
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrValidation):
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return status.Error(codes.InvalidArgument, "invalid credentials: "+verr.Message)
		}
		return status.Error(codes.InvalidArgument, "invalid credentials")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
