package infra

import (
	"bytes"
	"fmt"
	"net/smtp"

	"farmapos/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer wraps the SMTP settings used for alert digests.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	from     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		from:     cfg.SMTPUser,
	}
}

// Habilitado reports whether an SMTP host is configured.
func (m *Mailer) Habilitado() bool { return m != nil && m.host != "" }

// Enviar sends a plain-text message, optionally with one attachment.
func (m *Mailer) Enviar(to []string, subject, body string, adjunto []byte, nombreAdjunto string) error {
	if !m.Habilitado() {
		return fmt.Errorf("mailer: SMTP no configurado")
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = to
	e.Subject = subject
	e.Text = []byte(body)

	if len(adjunto) > 0 {
		if _, err := e.Attach(bytes.NewReader(adjunto), nombreAdjunto, "application/octet-stream"); err != nil {
			return fmt.Errorf("mailer: attach: %w", err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
