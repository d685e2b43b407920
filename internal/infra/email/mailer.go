package email

import (
	"context"
	"fmt"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/jordan-wright/email"
)

const defaultSubject = "Class availability"

// SMTPConfig describes the outgoing mail relay.
type SMTPConfig struct {
	Server   string
	Port     int
	Username string
	Password string
	Subject  string // optional
}

// SMTPMailer sends plain text mail through a relay that supports STARTTLS or no auth.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Subject == "" {
		cfg.Subject = defaultSubject
	}
	return &SMTPMailer{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Send delivers body from one address to one recipient. Relays that refuse
// AUTH get a second, unauthenticated attempt.
func (m *SMTPMailer) Send(ctx context.Context, from, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mail := &email.Email{
		From:    from,
		To:      []string{to},
		Subject: m.cfg.Subject,
		Text:    []byte(body),
		Headers: textproto.MIMEHeader{},
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Server, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Server)
	}
	err := m.send(mail, addr, auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = m.send(mail, addr, nil)
	}
	if err != nil {
		return fmt.Errorf("send mail to %s via %s: %w", to, addr, err)
	}
	return nil
}
