// Package email delivers outbound messages such as 2FA codes.
package email

import (
	"context"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/authsvc/internal/logging"
	"github.com/dmitrijs2005/authsvc/internal/server/models"
)

// Client sends a plain-text message to a recipient.
type Client interface {
	Send(ctx context.Context, to models.Email, subject, body string) error
}

// LogClient writes messages to the log instead of sending them. Digits in
// the body are masked so codes never reach the log, unless the client was
// built WithUnmaskedBody.
type LogClient struct {
	logger   logging.Logger
	unmasked bool
}

type LogOption func(*LogClient)

// WithUnmaskedBody logs bodies verbatim, 2FA codes included. It lets a
// local deployment without a real mail backend finish a 2FA login.
func WithUnmaskedBody() LogOption {
	return func(c *LogClient) { c.unmasked = true }
}

func NewLogClient(logger logging.Logger, opts ...LogOption) *LogClient {
	c := &LogClient{logger: logger.With("module", "email")}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *LogClient) Send(ctx context.Context, to models.Email, subject, body string) error {
	if !c.unmasked {
		body = maskDigits(body)
	}
	c.logger.Info(ctx, "email sent", "to", to.String(), "subject", subject, "body", body)
	return nil
}

func maskDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return '*'
		}
		return r
	}, s)
}
