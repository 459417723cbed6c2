package mail

import (
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/config"
)

type MailSender interface {
	Send(to string, subject string, textBody string, htmlBody string) error
}

// ConsoleMailSender logs messages instead of delivering them.
type ConsoleMailSender struct {
	Logger hclog.Logger
}

func (s *ConsoleMailSender) Send(to string, subject string, textBody string, htmlBody string) error {
	s.Logger.Info("email not delivered (console provider)", "to", to, "subject", subject, "text", textBody)
	return nil
}

type SmtpConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

type SmtpMailSender struct {
	config SmtpConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSmtpMailSender(config SmtpConfig) *SmtpMailSender {
	return &SmtpMailSender{config: config, send: smtp.SendMail}
}

func (s *SmtpMailSender) Send(to string, subject string, textBody string, htmlBody string) error {
	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}
	address := fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)

	msg, err := buildMessage(s.config.From, to, subject, textBody, htmlBody)
	if err != nil {
		return err
	}
	if err := s.send(address, auth, s.config.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// buildMessage renders a multipart/alternative message, or a plain text one
// when there is no HTML body.
func buildMessage(from, to, subject, textBody, htmlBody string) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\nFrom: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\n", to, from, subject)

	if htmlBody == "" {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(textBody)
		return []byte(b.String()), nil
	}

	var body strings.Builder
	w := multipart.NewWriter(&body)
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", w.Boundary())
	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=\"UTF-8\"", textBody},
		{"text/html; charset=\"UTF-8\"", htmlBody},
	} {
		pw, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	b.WriteString(body.String())
	return []byte(b.String()), nil
}

func NewSender(cfg config.MailConfig, logger hclog.Logger) MailSender {
	if cfg.Provider == "smtp" {
		return NewSmtpMailSender(SmtpConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			From:     cfg.From,
		})
	}
	return &ConsoleMailSender{Logger: logger}
}
