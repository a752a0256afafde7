package models

import (
	"strings"
	"unicode"
)

// PasswordSpecialChars is the set of symbols of which a password must
// contain at least one.
const PasswordSpecialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

const minPasswordLength = 8

// Password is a plaintext password that satisfied the strength rules. It
// exists only between parsing and hashing.
type Password struct {
	secret Secret
}

func ParsePassword(raw Secret) (Password, error) {
	value := raw.Expose()

	if value == "" {
		return Password{}, ErrPasswordEmpty
	}
	if len(value) < minPasswordLength {
		return Password{}, ErrPasswordTooShort
	}
	if !strings.ContainsFunc(value, unicode.IsUpper) {
		return Password{}, ErrPasswordNoUpper
	}
	if !strings.ContainsFunc(value, unicode.IsLower) {
		return Password{}, ErrPasswordNoLower
	}
	if !strings.ContainsFunc(value, isASCIIDigit) {
		return Password{}, ErrPasswordNoDigit
	}
	if !strings.ContainsAny(value, PasswordSpecialChars) {
		return Password{}, ErrPasswordNoSpecial
	}

	return Password{secret: raw}, nil
}

func (p Password) Secret() Secret {
	return p.secret
}

func (p Password) String() string {
	return redacted
}

func (p Password) GoString() string {
	return redacted
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
