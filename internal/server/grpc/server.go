// Package grpc exposes SessionService over gRPC using the api package's
// JSON codec.
package grpc

import (
	"context"
	"net"
	"sync/atomic"

	"github.com/dmitrijs2005/authsvc/internal/api"
	"github.com/dmitrijs2005/authsvc/internal/logging"
	"github.com/dmitrijs2005/authsvc/internal/server/auth"
	"github.com/dmitrijs2005/authsvc/internal/server/services"
	"google.golang.org/grpc"
)

// Sessions is the slice of *services.SessionService the transport calls.
type Sessions interface {
	Signup(ctx context.Context, req services.SignupRequest) (*services.SignupResult, error)
	Login(ctx context.Context, req services.LoginRequest) (*services.LoginResult, error)
	Verify2FA(ctx context.Context, req services.Verify2FARequest) (*services.LoginResult, error)
	Logout(ctx context.Context, token string) (*services.LogoutResult, error)
	VerifyToken(ctx context.Context, token string) (*auth.Claims, error)
}

// RPCRecorder counts finished calls. *observability.Metrics satisfies it.
type RPCRecorder interface {
	RecordRPC(method, code string)
}

type GRPCServer struct {
	address  string
	sessions Sessions
	logger   logging.Logger
	metrics  RPCRecorder
	serving  atomic.Bool
}

func NewGRPCServer(address string, l logging.Logger, sessions Sessions, metrics RPCRecorder) *GRPCServer {
	return &GRPCServer{
		address:  address,
		logger:   l.With("module", "grpc_server"),
		sessions: sessions,
		metrics:  metrics,
	}
}

// Serving reports whether the server is accepting connections.
func (s *GRPCServer) Serving() bool {
	return s.serving.Load()
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	api.RegisterAuthServiceServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		s.serving.Store(false)
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())
	s.serving.Store(true)

	err := srv.Serve(lis)
	s.serving.Store(false)
	close(done)
	<-stopped
	return err
}
