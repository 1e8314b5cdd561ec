package accounts

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"net/smtp"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
)

// SMTPMailer sends account emails over plain SMTP. The body is rendered from
// the embedded django templates in data/templates.
type SMTPMailer struct {
	host     string
	port     string
	from     string
	user     string
	password string
	engine   *django.Engine
	logger   Logger
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates the mailer and loads the embedded templates.
func NewSMTPMailer(cfg SMTPConfig, logger Logger) (*SMTPMailer, error) {
	if logger == nil {
		logger = defLogger{}
	}

	templates, err := fs.Sub(GetTemplatesFS(), "data/templates")
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to scope email templates")
	}

	engine := django.NewFileSystem(http.FS(templates), ".html")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to load email templates")
	}

	return &SMTPMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		from:     cfg.From,
		user:     cfg.User,
		password: cfg.Password,
		engine:   engine,
		logger:   logger,
	}, nil
}

// SendConfirmation renders and delivers the confirmation email.
func (m *SMTPMailer) SendConfirmation(ctx context.Context, toEmail, confirmationLink string) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled before sending email")
	}

	body := &bytes.Buffer{}
	if err := m.engine.Render(body, "confirmation", map[string]any{
		"email": toEmail,
		"link":  confirmationLink,
	}); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render confirmation email")
	}

	msg := &bytes.Buffer{}
	fmt.Fprintf(msg, "From: %s\r\n", m.from)
	fmt.Fprintf(msg, "To: %s\r\n", toEmail)
	fmt.Fprintf(msg, "Subject: Confirm your email address\r\n")
	fmt.Fprintf(msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(msg, "Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.Write(body.Bytes())

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.password, m.host)

	m.logger.Debug("sending confirmation email", "to", toEmail)

	if err := smtp.SendMail(addr, auth, m.from, []string{toEmail}, msg.Bytes()); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send confirmation email")
	}

	return nil
}

// NoopMailer drops every email. Used in tests and local development without an
// SMTP endpoint.
type NoopMailer struct {
	Logger Logger
}

var _ Mailer = (*NoopMailer)(nil)

func (m NoopMailer) SendConfirmation(ctx context.Context, toEmail, confirmationLink string) error {
	if m.Logger != nil {
		m.Logger.Info("confirmation email suppressed", "to", toEmail, "link", confirmationLink)
	}
	return nil
}
