package mail

import (
	"net/smtp"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/config"
)

func TestSmtpSenderBuildsMultipartMessage(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s := NewSmtpMailSender(SmtpConfig{Host: "smtp.example", Port: "587", From: "noreply@example.com"})
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, s.Send("user@example.com", "Confirm your email", "plain link", "<a>html link</a>"))
	assert.Equal(t, "smtp.example:587", gotAddr)
	assert.Equal(t, []string{"user@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Confirm your email\r\n")
	assert.Contains(t, gotMsg, "multipart/alternative; boundary=")
	assert.Contains(t, gotMsg, "plain link")
	assert.Contains(t, gotMsg, "<a>html link</a>")
}

func TestSmtpSenderPlainText(t *testing.T) {
	var gotMsg string
	s := NewSmtpMailSender(SmtpConfig{Host: "smtp.example", Port: "25", From: "a@b"})
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotMsg = string(msg)
		return nil
	}
	require.NoError(t, s.Send("x@y", "Hi", "only text", ""))
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\nonly text"))
	assert.Contains(t, gotMsg, "text/plain")
}

func TestNewSender(t *testing.T) {
	_, ok := NewSender(config.MailConfig{Provider: "smtp", Host: "h", Port: "25"}, hclog.NewNullLogger()).(*SmtpMailSender)
	assert.True(t, ok)
	console, ok := NewSender(config.MailConfig{}, hclog.NewNullLogger()).(*ConsoleMailSender)
	require.True(t, ok)
	assert.NoError(t, console.Send("a@b", "s", "t", "h"))
}
