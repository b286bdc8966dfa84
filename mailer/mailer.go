package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Mailer sends the plain-text digest over SMTP.
type Mailer struct {
	host     string
	port     int
	from     string
	to       string
	password string
	log      *logrus.Logger

	// send is swapped in tests
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer creates an SMTP mailer authenticating as from with password.
func NewMailer(host string, port int, from, to, password string, log *logrus.Logger) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		from:     from,
		to:       to,
		password: password,
		log:      log,
		send:     smtp.SendMail,
	}
}

// SendDigest mails body as a plain-text message with the given subject.
func (m *Mailer) SendDigest(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.from, m.password, m.host)

	msg := buildMessage(m.from, m.to, subject, body, time.Now())

	if err := m.send(addr, auth, m.from, []string{m.to}, msg); err != nil {
		return fmt.Errorf("failed to send digest mail: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"to":      m.to,
		"subject": subject,
	}).Info("Digest mailed")
	return nil
}

// buildMessage assembles an RFC 5322 plain-text message.
func buildMessage(from, to, subject, body string, date time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
