// Package mail renders and delivers the account verification email.
package mail

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/iliyamo/storefront-api/internal/logging"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers through an SMTP relay.
type SMTPSender struct {
	from   string
	dialer dialer
}

func NewSMTPSender(host string, port int, user, pass, from string) *SMTPSender {
	return &SMTPSender{from: from, dialer: gomail.NewDialer(host, port, user, pass)}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.from, "Shoes Store")
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Text)
	msg.AddAlternative("text/html", m.HTML)
	return s.dialer.DialAndSend(msg)
}

// LogSender writes the message to the log instead of sending it.
type LogSender struct {
	log logging.Logger
}

func NewLogSender(log logging.Logger) *LogSender { return &LogSender{log: log} }

func (s *LogSender) Send(ctx context.Context, m Message) error {
	s.log.Info(ctx, "email_logged", "to", m.To, "subject", m.Subject, "body", m.Text)
	return nil
}
