package authgate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrEthical07/authgate/provider"
)

func TestEmailSenderTemplates(t *testing.T) {
	m := &recordingMailer{}
	s := &EmailSender{AppName: "Todo", Mailer: m}
	user := &provider.User{Email: "ada@example.com"}

	if err := s.SendVerificationEmail(context.Background(), user, "https://api.example.com/api/auth/verify-email?token=t1&callbackURL=%2F"); err != nil {
		t.Fatalf("SendVerificationEmail: %v", err)
	}
	if err := s.SendResetPassword(context.Background(), user, "https://api.example.com/api/auth/reset-password/t2"); err != nil {
		t.Fatalf("SendResetPassword: %v", err)
	}

	if len(m.sent) != 2 {
		t.Fatalf("sent = %d", len(m.sent))
	}
	verify, reset := m.sent[0], m.sent[1]
	if verify.to != "ada@example.com" || verify.subject != "Verify your email" {
		t.Fatalf("verify = %+v", verify)
	}
	if !strings.Contains(verify.html, `href="https://api.example.com/api/auth/verify-email?token=t1&amp;callbackURL=%2F"`) {
		t.Fatalf("verify link not rendered: %s", verify.html)
	}
	if !strings.Contains(verify.html, "Todo") {
		t.Fatal("app name not rendered")
	}
	if reset.subject != "Reset your password" || !strings.Contains(reset.html, "reset-password/t2") {
		t.Fatalf("reset = %+v", reset)
	}
}

func TestEmailSenderEscapes(t *testing.T) {
	m := &recordingMailer{}
	s := &EmailSender{AppName: "<b>App</b>", Mailer: m}

	err := s.SendResetPassword(context.Background(), &provider.User{Email: "x@example.com"}, "javascript:alert(1)")
	if err != nil {
		t.Fatalf("SendResetPassword: %v", err)
	}
	html := m.sent[0].html
	if strings.Contains(html, "<b>App</b>") {
		t.Fatal("app name not escaped")
	}
	if strings.Contains(html, `href="javascript:`) {
		t.Fatal("unsafe URL rendered into href")
	}
}

func TestEmailSenderMailerError(t *testing.T) {
	boom := errors.New("smtp down")
	s := &EmailSender{Mailer: &recordingMailer{err: boom}}
	err := s.SendVerificationEmail(context.Background(), &provider.User{Email: "x@example.com"}, "https://example.com")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped mailer error, got %v", err)
	}
}
