package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
)

type attempt struct {
	addr   string
	authed bool
	mail   *email.Email
}

func recordingMailer(cfg SMTPConfig, errs ...error) (*SMTPMailer, *[]attempt) {
	m := NewSMTPMailer(cfg)
	var attempts []attempt
	m.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		attempts = append(attempts, attempt{addr: addr, authed: auth != nil, mail: e})
		if len(errs) == 0 {
			return nil
		}
		err := errs[0]
		errs = errs[1:]
		return err
	}
	return m, &attempts
}

func TestSendBuildsPlainTextMail(t *testing.T) {
	m, attempts := recordingMailer(SMTPConfig{Server: "smtp.example.com", Port: 587, Username: "bot", Password: "pw"})

	require.NoError(t, m.Send(context.Background(), "bot@example.com", "ana@example.com", "FNCE.3228(50850) has space available"))

	require.Len(t, *attempts, 1)
	a := (*attempts)[0]
	require.Equal(t, "smtp.example.com:587", a.addr)
	require.True(t, a.authed)
	require.Equal(t, []string{"ana@example.com"}, a.mail.To)
	require.Equal(t, defaultSubject, a.mail.Subject)
	require.Equal(t, "FNCE.3228(50850) has space available", string(a.mail.Text))
}

func TestSendRetriesWithoutAuth(t *testing.T) {
	m, attempts := recordingMailer(SMTPConfig{Server: "localhost", Port: 25, Username: "bot"},
		errors.New("smtp: server doesn't support AUTH"))

	require.NoError(t, m.Send(context.Background(), "bot@example.com", "ana@example.com", "hi"))
	require.Len(t, *attempts, 2)
	require.False(t, (*attempts)[1].authed)
}

func TestSendWrapsFailure(t *testing.T) {
	cause := errors.New("550 mailbox unavailable")
	m, _ := recordingMailer(SMTPConfig{Server: "localhost", Port: 25}, cause)

	err := m.Send(context.Background(), "bot@example.com", "ana@example.com", "hi")
	require.ErrorIs(t, err, cause)
}

func TestSendHonoursCancelledContext(t *testing.T) {
	m, attempts := recordingMailer(SMTPConfig{Server: "localhost", Port: 25})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, m.Send(ctx, "a@example.com", "b@example.com", "hi"), context.Canceled)
	require.Empty(t, *attempts)
}
