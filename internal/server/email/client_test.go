package email

import (
	"bytes"
	"context"
	"testing"

	"github.com/dmitrijs2005/authsvc/internal/logging"
	"github.com/dmitrijs2005/authsvc/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogClient_MasksCode(t *testing.T) {
	var buf bytes.Buffer
	c := NewLogClient(logging.New("test", "json", &buf))

	to, err := models.ParseEmail("a@b.co")
	require.NoError(t, err)

	require.NoError(t, c.Send(context.Background(), to, "2FA Code", "Your 2FA code is: 123456"))

	out := buf.String()
	assert.Contains(t, out, `"to":"a@b.co"`)
	assert.Contains(t, out, `"subject":"2FA Code"`)
	assert.Contains(t, out, "Your *FA code is: ******")
	assert.NotContains(t, out, "123456")
	assert.Contains(t, out, `"module":"email"`)
}

func TestLogClient_UnmaskedBody(t *testing.T) {
	var buf bytes.Buffer
	c := NewLogClient(logging.New("test", "json", &buf), WithUnmaskedBody())

	to, err := models.ParseEmail("a@b.co")
	require.NoError(t, err)

	require.NoError(t, c.Send(context.Background(), to, "2FA Code", "Your 2FA code is: 123456"))
	assert.Contains(t, buf.String(), "Your 2FA code is: 123456")
}

func TestMaskDigits(t *testing.T) {
	assert.Equal(t, "", maskDigits(""))
	assert.Equal(t, "abc", maskDigits("abc"))
	assert.Equal(t, "a*b**", maskDigits("a1b23"))
}
