package models

import (
	"crypto/subtle"
	"log/slog"
)

const redacted = "[REDACTED]"

// Secret holds a sensitive string. Formatting, logging and JSON encoding
// all print a placeholder; the value is reachable only through Expose.
type Secret struct {
	value string
}

func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Expose returns the wrapped value. Every call site is a place where the
// secret leaves its wrapper.
func (s Secret) Expose() string {
	return s.value
}

// Equal compares two secrets in constant time.
func (s Secret) Equal(other Secret) bool {
	return subtle.ConstantTimeCompare([]byte(s.value), []byte(other.value)) == 1
}

func (s Secret) IsZero() bool {
	return s.value == ""
}

func (s Secret) String() string {
	return redacted
}

func (s Secret) GoString() string {
	return redacted
}

func (s Secret) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}
