package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "authsvc.v1.AuthService"

// Full method names, as seen by interceptors.
const (
	MethodSignup      = "/" + ServiceName + "/Signup"
	MethodLogin       = "/" + ServiceName + "/Login"
	MethodVerify2FA   = "/" + ServiceName + "/Verify2FA"
	MethodLogout      = "/" + ServiceName + "/Logout"
	MethodVerifyToken = "/" + ServiceName + "/VerifyToken"
	MethodPing        = "/" + ServiceName + "/Ping"
)

// AuthServiceServer is implemented by the gRPC server.
type AuthServiceServer interface {
	Signup(context.Context, *SignupRequest) (*SignupResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Verify2FA(context.Context, *Verify2FARequest) (*LoginResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	VerifyToken(context.Context, *VerifyTokenRequest) (*VerifyTokenResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler[Req, Resp any](fullMethod string, call func(AuthServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(AuthServiceServer)

		if interceptor == nil {
			out, err := call(s, ctx, in)
			if err != nil {
				return nil, err
			}
			return out, nil
		}

		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			out, err := call(s, ctx, req.(*Req))
			if err != nil {
				return nil, err
			}
			return out, nil
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes AuthService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Signup",
			Handler: unaryHandler(MethodSignup, func(s AuthServiceServer, ctx context.Context, in *SignupRequest) (*SignupResponse, error) {
				return s.Signup(ctx, in)
			}),
		},
		{
			MethodName: "Login",
			Handler: unaryHandler(MethodLogin, func(s AuthServiceServer, ctx context.Context, in *LoginRequest) (*LoginResponse, error) {
				return s.Login(ctx, in)
			}),
		},
		{
			MethodName: "Verify2FA",
			Handler: unaryHandler(MethodVerify2FA, func(s AuthServiceServer, ctx context.Context, in *Verify2FARequest) (*LoginResponse, error) {
				return s.Verify2FA(ctx, in)
			}),
		},
		{
			MethodName: "Logout",
			Handler: unaryHandler(MethodLogout, func(s AuthServiceServer, ctx context.Context, in *LogoutRequest) (*LogoutResponse, error) {
				return s.Logout(ctx, in)
			}),
		},
		{
			MethodName: "VerifyToken",
			Handler: unaryHandler(MethodVerifyToken, func(s AuthServiceServer, ctx context.Context, in *VerifyTokenRequest) (*VerifyTokenResponse, error) {
				return s.VerifyToken(ctx, in)
			}),
		},
		{
			MethodName: "Ping",
			Handler: unaryHandler(MethodPing, func(s AuthServiceServer, ctx context.Context, in *PingRequest) (*PingResponse, error) {
				return s.Ping(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authsvc/v1/auth",
}
