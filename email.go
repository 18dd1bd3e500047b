package authgate

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/MrEthical07/authgate/provider"
)

const (
	SubjectVerifyEmail   = "Verify your email"
	SubjectResetPassword = "Reset your password"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Mailer delivers a rendered HTML message. mail.SMTPMailer and mail.LogMailer implement it.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// EmailSender renders the verification and reset templates and hands them to a Mailer.
// Its methods match the provider's SendVerificationEmail and SendResetPassword options.
type EmailSender struct {
	AppName string
	Mailer  Mailer
}

type emailData struct {
	AppName      string
	EmailAddress string
	URL          string
}

func (s *EmailSender) SendVerificationEmail(ctx context.Context, user *provider.User, url string) error {
	return s.send(ctx, user, "verify_email.html", SubjectVerifyEmail, url)
}

func (s *EmailSender) SendResetPassword(ctx context.Context, user *provider.User, url string) error {
	return s.send(ctx, user, "reset_password.html", SubjectResetPassword, url)
}

func (s *EmailSender) send(ctx context.Context, user *provider.User, tmpl, subject, url string) error {
	var buf bytes.Buffer
	data := emailData{AppName: s.AppName, EmailAddress: user.Email, URL: url}
	if err := emailTemplates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}
	if err := s.Mailer.Send(ctx, user.Email, subject, buf.String()); err != nil {
		return fmt.Errorf("send %q to %s: %w", subject, user.Email, err)
	}
	return nil
}
