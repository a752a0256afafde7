package models

import (
	"strings"
)

// Email is a syntactically valid address. The zero value is not valid and
// is never returned by ParseEmail.
type Email struct {
	address string
}

// ParseEmail validates raw and returns the first rule it breaks.
func ParseEmail(raw string) (Email, error) {
	if raw == "" {
		return Email{}, ErrEmailEmpty
	}
	if !strings.Contains(raw, "@") {
		return Email{}, ErrEmailMissingAt
	}

	parts := strings.Split(raw, "@")
	if len(parts) != 2 {
		return Email{}, ErrEmailMultipleAt
	}

	user, domain := parts[0], parts[1]

	if user == "" {
		return Email{}, ErrEmailEmptyUser
	}
	if domain == "" {
		return Email{}, ErrEmailEmptyDomain
	}
	if !strings.Contains(domain, ".") {
		return Email{}, ErrEmailDomainNoDot
	}
	if strings.Contains(domain, "..") {
		return Email{}, ErrEmailConsecutiveDots
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return Email{}, ErrEmailEdgeDot
	}

	return Email{address: raw}, nil
}

func (e Email) String() string {
	return e.address
}

func (e Email) IsZero() bool {
	return e.address == ""
}
