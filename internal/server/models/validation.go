// Package models holds the validated domain values of the auth service.
//
// Values in this package are constructed only through their Parse
// functions, so holding one proves that its invariants hold.
package models

import "github.com/dmitrijs2005/authsvc/internal/common"

// ValidationError reports the single rule a raw input violated.
//
// Each rule has a package-level sentinel, so callers can match a specific
// rule with errors.Is, or any validation failure with common.ErrValidation.
type ValidationError struct {
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return common.ErrValidation
}

func newRule(field, rule, message string) *ValidationError {
	return &ValidationError{Field: field, Rule: rule, Message: message}
}

var (
	ErrEmailEmpty           = newRule("email", "empty", "Email cannot be empty")
	ErrEmailMissingAt       = newRule("email", "missing_at", "Invalid email format")
	ErrEmailMultipleAt      = newRule("email", "multiple_at", "Email must contain exactly one @ symbol")
	ErrEmailEmptyUser       = newRule("email", "empty_user", "Email user part cannot be empty")
	ErrEmailEmptyDomain     = newRule("email", "empty_domain", "Email domain part cannot be empty")
	ErrEmailDomainNoDot     = newRule("email", "domain_no_dot", "Email domain must contain at least one dot")
	ErrEmailConsecutiveDots = newRule("email", "consecutive_dots", "Email domain cannot contain consecutive dots")
	ErrEmailEdgeDot         = newRule("email", "edge_dot", "Email domain cannot start or end with a dot")

	ErrPasswordEmpty     = newRule("password", "empty", "Password cannot be empty")
	ErrPasswordTooShort  = newRule("password", "too_short", "Password must be at least 8 characters long")
	ErrPasswordNoUpper   = newRule("password", "no_uppercase", "Password must contain at least one uppercase letter")
	ErrPasswordNoLower   = newRule("password", "no_lowercase", "Password must contain at least one lowercase letter")
	ErrPasswordNoDigit   = newRule("password", "no_digit", "Password must contain at least one digit")
	ErrPasswordNoSpecial = newRule("password", "no_special", "Password must contain at least one special character")

	ErrLoginAttemptIDEmpty   = newRule("login_attempt_id", "empty", "Login attempt id cannot be empty")
	ErrLoginAttemptIDInvalid = newRule("login_attempt_id", "invalid_uuid", "Login attempt id must be a valid UUID")

	ErrTwoFACodeInvalid = newRule("2fa_code", "invalid", "2FA code must be exactly 6 digits")
)
