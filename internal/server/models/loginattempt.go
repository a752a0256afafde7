package models

import "github.com/google/uuid"

// LoginAttemptID correlates a pending 2FA challenge with its verification.
type LoginAttemptID struct {
	id uuid.UUID
}

func NewLoginAttemptID() LoginAttemptID {
	return LoginAttemptID{id: uuid.New()}
}

func ParseLoginAttemptID(raw string) (LoginAttemptID, error) {
	if raw == "" {
		return LoginAttemptID{}, ErrLoginAttemptIDEmpty
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return LoginAttemptID{}, ErrLoginAttemptIDInvalid
	}
	return LoginAttemptID{id: id}, nil
}

func (l LoginAttemptID) String() string {
	return l.id.String()
}

func (l LoginAttemptID) IsZero() bool {
	return l.id == uuid.Nil
}
