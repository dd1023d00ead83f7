package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Mailer sends one notification.
type Mailer interface {
	Send(ctx context.Context, n Notification) error
}

// SMTPMailer sends plain text e-mail through an SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

func (m *SMTPMailer) Send(_ context.Context, n Notification) error {
	addr := net.JoinHostPort(m.Host, m.Port)
	var auth smtp.Auth
	if m.User != "" {
		auth = smtp.PlainAuth("", m.User, m.Password, m.Host)
	}
	return smtp.SendMail(addr, auth, m.From, []string{n.To}, m.message(n))
}

func (m *SMTPMailer) message(n Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", n.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.ReplaceAll(n.Subject, "\n", " "))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(n.Body)
	return []byte(b.String())
}

// LogMailer only logs; used when no SMTP relay is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, n Notification) error {
	logrus.WithFields(logrus.Fields{
		"to":      n.To,
		"subject": n.Subject,
	}).Info("Notification")
	return nil
}
