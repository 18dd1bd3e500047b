// Package mail delivers rendered authentication emails.
//
// SMTPMailer speaks SMTP with STARTTLS through net/smtp. LogMailer writes the message
// to a slog.Logger instead of sending it and is meant for local development.
package mail
