// Package cryptox contains the password hashing primitives of the auth
// service: an Argon2id hasher producing PHC-formatted strings and the
// bounded pool it runs on.
package cryptox

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMismatch is returned by Verify for a wrong password and for any hash
// it cannot use. The two cases are not distinguished.
var ErrMismatch = errors.New("password mismatch")

// Params is an Argon2id cost profile.
type Params struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultParams is the production cost profile: 15000 KiB, 2 passes, 1 lane.
var DefaultParams = Params{
	Memory:  15000,
	Time:    2,
	Threads: 1,
	SaltLen: 16,
	KeyLen:  32,
}

// Upper bounds accepted when decoding a stored hash.
const (
	maxMemory = 1 << 20
	maxTime   = 16
	maxKeyLen = 1024
)

type Argon2idHasher struct {
	params Params
	pool   *Pool
}

func NewArgon2idHasher(params Params, pool *Pool) *Argon2idHasher {
	if pool == nil {
		pool = NewPool(0)
	}
	return &Argon2idHasher{params: params, pool: pool}
}

// Hash derives a salted Argon2id hash of password and encodes it as
// $argon2id$v=19$m=<mem>,t=<time>,p=<threads>$<salt>$<hash>.
func (h *Argon2idHasher) Hash(ctx context.Context, password []byte) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	var encoded string
	err := h.pool.Do(ctx, func() error {
		key := argon2.IDKey(password, salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
		encoded = fmt.Sprintf(
			"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
			argon2.Version,
			h.params.Memory,
			h.params.Time,
			h.params.Threads,
			base64.RawStdEncoding.EncodeToString(salt),
			base64.RawStdEncoding.EncodeToString(key),
		)
		return nil
	})
	if err != nil {
		return "", err
	}

	return encoded, nil
}

// Verify checks candidate against an encoded hash. It returns nil on a
// match, ErrMismatch otherwise, or the context error if ctx ended first.
func (h *Argon2idHasher) Verify(ctx context.Context, encoded string, candidate []byte) error {
	d, ok := decodeHash(encoded)
	if !ok {
		return ErrMismatch
	}

	var match bool
	err := h.pool.Do(ctx, func() error {
		computed := argon2.IDKey(candidate, d.salt, d.params.Time, d.params.Memory, d.params.Threads, d.params.KeyLen)
		match = subtle.ConstantTimeCompare(computed, d.key) == 1
		return nil
	})
	if err != nil {
		return err
	}

	if !match {
		return ErrMismatch
	}
	return nil
}

type decodedHash struct {
	params Params
	salt   []byte
	key    []byte
}

func decodeHash(encoded string) (decodedHash, bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return decodedHash{}, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return decodedHash{}, false
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return decodedHash{}, false
	}
	if memory == 0 || memory > maxMemory || time == 0 || time > maxTime || threads == 0 || threads > 255 {
		return decodedHash{}, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return decodedHash{}, false
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > maxKeyLen {
		return decodedHash{}, false
	}

	return decodedHash{
		params: Params{
			Memory:  memory,
			Time:    time,
			Threads: uint8(threads),
			SaltLen: uint32(len(salt)),
			KeyLen:  uint32(len(key)),
		},
		salt: salt,
		key:  key,
	}, true
}
