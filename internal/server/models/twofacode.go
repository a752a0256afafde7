package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const twoFACodeLength = 6

var twoFACodeSpace = big.NewInt(1_000_000)

// TwoFACode is a 6-digit one-time code.
type TwoFACode struct {
	code Secret
}

// NewTwoFACode draws a uniformly random code from crypto/rand.
func NewTwoFACode() (TwoFACode, error) {
	n, err := rand.Int(rand.Reader, twoFACodeSpace)
	if err != nil {
		return TwoFACode{}, fmt.Errorf("generate 2fa code: %w", err)
	}
	return TwoFACode{code: NewSecret(fmt.Sprintf("%06d", n.Int64()))}, nil
}

func ParseTwoFACode(raw string) (TwoFACode, error) {
	if len(raw) != twoFACodeLength {
		return TwoFACode{}, ErrTwoFACodeInvalid
	}
	for i := 0; i < len(raw); i++ {
		if !isASCIIDigit(rune(raw[i])) {
			return TwoFACode{}, ErrTwoFACodeInvalid
		}
	}
	return TwoFACode{code: NewSecret(raw)}, nil
}

// Equal compares codes in constant time.
func (c TwoFACode) Equal(other TwoFACode) bool {
	return c.code.Equal(other.code)
}

// Expose returns the digits, for storing and for the outgoing message.
func (c TwoFACode) Expose() string {
	return c.code.Expose()
}

func (c TwoFACode) String() string {
	return redacted
}
