// Package bannedtokens stores session tokens revoked before their natural
// expiry. Every entry lives exactly as long as the token it revokes.
package bannedtokens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Repository is the revocation store contract shared by all backends.
type Repository interface {
	// IsBanned reports whether token has a live revocation entry.
	IsBanned(ctx context.Context, token string) (bool, error)

	// Ban revokes token until expiresAt. A token whose expiresAt has
	// already passed is not stored.
	Ban(ctx context.Context, token string, expiresAt time.Time) error

	// BanIfAbsent revokes token and reports whether this call created the
	// entry. Concurrent calls for one token yield exactly one true.
	BanIfAbsent(ctx context.Context, token string, expiresAt time.Time) (bool, error)
}

// TokenKey derives the storage key of a token so that raw bearer tokens
// are never written to a backend.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
