package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/api"
	"github.com/dmitrijs2005/authsvc/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const accessTokenKey ctxKey = "access_token"

func accessTokenFromMetadata(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func accessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey).(string)
	return token
}

// accessTokenInterceptor moves the access_token metadata into the context.
// Logout cannot proceed without it.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	switch info.FullMethod {
	case api.MethodLogout, api.MethodVerifyToken:
		token := accessTokenFromMetadata(ctx)
		if token == "" && info.FullMethod == api.MethodLogout {
			return nil, status.Error(codes.InvalidArgument, "missing token")
		}
		if token != "" {
			ctx = context.WithValue(ctx, accessTokenKey, token)
		}
	}

	return handler(ctx, req)
}

// loggingInterceptor logs every call with its status code and latency.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)

	if s.metrics != nil {
		s.metrics.RecordRPC(info.FullMethod, code.String())
	}

	args := []any{"method", info.FullMethod, "code", code.String(), "duration", time.Since(start)}
	if code == codes.Internal {
		s.logger.Error(ctx, "grpc request", args...)
	} else {
		s.logger.Info(ctx, "grpc request", args...)
	}

	return resp, err
}
