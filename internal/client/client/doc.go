// Package client talks to the authsvc AuthService over gRPC.
//
// GRPCClient keeps the session token returned by Login or Verify2FA and
// attaches it as access_token metadata to Logout and VerifyToken calls.
// gRPC status codes are mapped to the sentinel errors in errors.go so the
// CLI can match them with errors.Is.
package client
