package models

// PasswordHash is an encoded one-way password hash in PHC string format.
type PasswordHash string

// User is an account in the credential store.
//
// Password is set only on the way in (signup) and is never persisted or
// returned by a store; PasswordHash is set only on the way out.
type User struct {
	Email        Email
	Password     Password
	PasswordHash PasswordHash
	Requires2FA  bool
}
