// Package api defines the AuthService RPC contract shared by the server and
// the client: plain Go messages, a JSON codec, the service descriptor and a
// client stub.
package api

// SignupRequest registers an account.
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Requires2FA bool   `json:"requires2FA"`
}

type SignupResponse struct {
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries AccessToken for a completed login, or
// TwoFactorRequired with LoginAttemptID when a code was emailed.
type LoginResponse struct {
	AccessToken       string `json:"accessToken,omitempty"`
	ExpiresAt         int64  `json:"expiresAt,omitempty"`
	TwoFactorRequired bool   `json:"twoFactorRequired"`
	LoginAttemptID    string `json:"loginAttemptId,omitempty"`
	Message           string `json:"message,omitempty"`
}

type Verify2FARequest struct {
	Email          string `json:"email"`
	LoginAttemptID string `json:"loginAttemptId"`
	TwoFACode      string `json:"2FACode"`
}

// LogoutRequest is empty; the token travels in the access_token metadata.
type LogoutRequest struct{}

type LogoutResponse struct {
	AlreadyRevoked bool `json:"alreadyRevoked"`
}

// VerifyTokenRequest falls back to the access_token metadata when Token is
// empty.
type VerifyTokenRequest struct {
	Token string `json:"token"`
}

type VerifyTokenResponse struct {
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expiresAt"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
