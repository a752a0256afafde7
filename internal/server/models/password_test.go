package models

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/dmitrijs2005/authsvc/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePassword_Valid(t *testing.T) {
	for _, raw := range []string{"Password123!", "aB3$efgh", "Zz9|Zz9|Zz9|"} {
		p, err := ParsePassword(NewSecret(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, raw, p.Secret().Expose())
	}
}

func TestParsePassword_Rules(t *testing.T) {
	tests := []struct {
		raw  string
		want *ValidationError
	}{
		{"", ErrPasswordEmpty},
		{"Pa1!", ErrPasswordTooShort},
		{"password123!", ErrPasswordNoUpper},
		{"PASSWORD123!", ErrPasswordNoLower},
		{"Password!!!!", ErrPasswordNoDigit},
		{"Password1234", ErrPasswordNoSpecial},
		{"Password123~", ErrPasswordNoSpecial},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := ParsePassword(NewSecret(tt.raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Equal(t, tt.want.Message, err.Error())
		})
	}
}

func randomValidPassword(r *rand.Rand) string {
	const (
		upper  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
		lower  = "abcdefghijklmnopqrstuvwxyz"
		digits = "0123456789"
	)
	all := upper + lower + digits + PasswordSpecialChars

	b := []byte{
		upper[r.Intn(len(upper))],
		lower[r.Intn(len(lower))],
		digits[r.Intn(len(digits))],
		PasswordSpecialChars[r.Intn(len(PasswordSpecialChars))],
	}
	for len(b) < minPasswordLength+r.Intn(24) {
		b = append(b, all[r.Intn(len(all))])
	}
	r.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
	return string(b)
}

func TestParsePassword_IdempotentOnGenerated(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		raw := randomValidPassword(r)

		p, err := ParsePassword(NewSecret(raw))
		require.NoError(t, err, raw)

		again, err := ParsePassword(p.Secret())
		require.NoError(t, err, raw)
		assert.Equal(t, p, again)
	}
}

func TestPassword_NeverPrinted(t *testing.T) {
	p, err := ParsePassword(NewSecret("Password123!"))
	require.NoError(t, err)

	var sb strings.Builder
	logger := slog.New(slog.NewTextHandler(&sb, nil))
	logger.Info("signup", "password", p.Secret())

	for _, out := range []string{
		fmt.Sprint(p), fmt.Sprintf("%v %+v %#v", p, p, p), sb.String(),
	} {
		assert.NotContains(t, out, "Password123!")
	}
}
