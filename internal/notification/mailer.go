package notification

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"

	mail "github.com/go-mail/mail/v2"
)

// Mailer sends workflow event emails over SMTP. All settings come from the
// environment; an unset SMTP_HOST disables email entirely.
type Mailer struct {
	host          string
	port          int
	user          string
	pass          string
	from          string
	recipients    []string
	skipTLSVerify bool
}

// NewMailerFromEnv reads SMTP_* variables. Returns nil when SMTP_HOST is not
// set so callers can wire a nil mailer and skip email.
func NewMailerFromEnv() *Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil
	}

	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}

	var recipients []string
	for _, addr := range strings.Split(os.Getenv("SMTP_NOTIFY_TO"), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}

	return &Mailer{
		host:          host,
		port:          port,
		user:          os.Getenv("SMTP_USER"),
		pass:          os.Getenv("SMTP_PASS"),
		from:          os.Getenv("SMTP_FROM"), // e.g. "Travel Expenses <no-reply@your.org>"
		recipients:    recipients,
		skipTLSVerify: os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1",
	}
}

// SendEvent mails a short summary of a workflow event to the configured
// recipient list.
func (m *Mailer) SendEvent(event, entityType, entityID string, payload map[string]any) error {
	if len(m.recipients) == 0 {
		return nil
	}
	if m.from == "" {
		return fmt.Errorf("smtp not configured (SMTP_FROM)")
	}

	subject := fmt.Sprintf("[Travel Expenses] %s", event)
	body := fmt.Sprintf("<p>Event: <b>%s</b></p><p>Entity: %s %s</p>", event, entityType, entityID)
	if status, ok := payload["status"].(string); ok {
		body += fmt.Sprintf("<p>Status: %s</p>", status)
	}
	if reason, ok := payload["reason"].(string); ok && reason != "" {
		body += fmt.Sprintf("<p>Reason: %s</p>", reason)
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	d := mail.NewDialer(m.host, m.port, m.user, m.pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         m.host,
		InsecureSkipVerify: m.skipTLSVerify, // dev only
	}

	return d.DialAndSend(msg)
}
