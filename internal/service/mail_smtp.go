package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"

	"contacts-server/internal/config"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var mailTemplatesFS embed.FS

// Compile-time check to ensure smtpMailer implements Mailer
var _ Mailer = (*smtpMailer)(nil)

type smtpMailer struct {
	cfg         *config.Config
	templates   *template.Template
	logger      *zap.Logger
	dialTimeout time.Duration
}

// NewSMTPMailer creates a Mailer that renders the embedded HTML templates and
// delivers them over plain SMTP with optional STARTTLS.
func NewSMTPMailer(cfg *config.Config, logger *zap.Logger) (Mailer, error) {
	tmpl, err := template.ParseFS(mailTemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail templates: %w", err)
	}
	return &smtpMailer{
		cfg:         cfg,
		templates:   tmpl,
		logger:      logger.Named("SMTPMailer"),
		dialTimeout: 30 * time.Second,
	}, nil
}

type mailTemplateData struct {
	Username string
	Link     string
}

// SendVerificationEmail sends the address-confirmation letter.
func (m *smtpMailer) SendVerificationEmail(ctx context.Context, to, username, token string) error {
	link := fmt.Sprintf("%s/api/users/confirmed_email/%s", strings.TrimRight(m.cfg.PublicBaseURL, "/"), token)
	return m.send(ctx, to, "Confirm your email", "verify_email.html", "verification", mailTemplateData{Username: username, Link: link})
}

// SendPasswordResetEmail sends the password-reset letter.
func (m *smtpMailer) SendPasswordResetEmail(ctx context.Context, to, username, token string) error {
	link := fmt.Sprintf("%s/api/auth/reset_password/%s", strings.TrimRight(m.cfg.PublicBaseURL, "/"), token)
	return m.send(ctx, to, "Reset your password", "reset_password_email.html", "password_reset", mailTemplateData{Username: username, Link: link})
}

func (m *smtpMailer) send(ctx context.Context, to, subject, templateName, kind string, data mailTemplateData) error {
	log := m.logger.With(zap.String("to", to), zap.String("template", templateName))

	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		log.Error("Failed to render mail template", zap.Error(err))
		return fmt.Errorf("failed to render mail template %s: %w", templateName, err)
	}

	msg := m.buildMessage(to, subject, body.String())
	if err := m.sendSMTP(ctx, to, msg); err != nil {
		log.Error("Failed to send email", zap.Error(err))
		return err
	}

	emailsSentTotal.WithLabelValues(kind).Inc()
	log.Info("Email sent", zap.String("subject", subject))
	return nil
}

// buildMessage constructs the email message with headers.
func (m *smtpMailer) buildMessage(to, subject, htmlBody string) string {
	var msg strings.Builder

	fromName := m.cfg.SMTPFromName
	if fromName == "" {
		fromName = "Contacts API"
	}

	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", fromName, m.cfg.SMTPFrom))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	return msg.String()
}

// sendSMTP delivers the message via SMTP.
func (m *smtpMailer) sendSMTP(ctx context.Context, to, msg string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)

	dialer := &net.Dialer{Timeout: m.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }()

	client, err := smtp.NewClient(conn, m.cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if m.cfg.SMTPStartTLS {
		tlsConfig := &tls.Config{
			ServerName: m.cfg.SMTPHost,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if m.cfg.SMTPUser != "" && m.cfg.SMTPPassword != "" {
		auth := smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPassword, m.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	// Сообщение уже принято сервером, ошибки QUIT не критичны
	_ = client.Quit()
	return nil
}
