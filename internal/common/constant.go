// Package common contains shared constants and sentinel errors used across
// authsvc components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the session
// token on requests and responses.
const AccessTokenHeaderName = "access_token"
