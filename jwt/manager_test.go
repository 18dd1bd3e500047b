package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte(strings.Repeat("s", 32))

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{Secret: testSecret, Issuer: "authgate-test"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueParse(t *testing.T) {
	m := newTestManager(t)

	tok, err := m.Issue(PurposeEmailVerification, "alice@example.com", time.Hour, map[string]string{"callback": "/done"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Parse(tok, PurposeEmailVerification)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "alice@example.com" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Data["callback"] != "/done" {
		t.Fatalf("unexpected data %v", claims.Data)
	}
}

func TestParseRejectsOtherPurpose(t *testing.T) {
	m := newTestManager(t)
	tok, _ := m.Issue(PurposeOAuthState, "google", time.Minute, nil)

	if _, err := m.Parse(tok, PurposeEmailVerification); !errors.Is(err, ErrPurposeMismatch) {
		t.Fatalf("expected ErrPurposeMismatch, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := newTestManager(t)
	claims := Claims{
		Purpose: PurposeEmailVerification,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "authgate-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.Parse(tok, PurposeEmailVerification); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager(Config{Secret: []byte(strings.Repeat("x", 32)), Issuer: "authgate-test"})
	if err != nil {
		t.Fatalf("other manager: %v", err)
	}
	tok, _ := other.Issue(PurposeEmailVerification, "a@b.c", time.Hour, nil)

	if _, err := m.Parse(tok, PurposeEmailVerification); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewManager(Config{Secret: []byte("short")}); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestParseHonoursLeeway(t *testing.T) {
	m, err := NewManager(Config{Secret: testSecret, Leeway: 30 * time.Second})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	issued := time.Now()
	m.now = func() time.Time { return issued }
	tok, err := m.Issue(PurposeOAuthState, "", time.Minute, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	m.now = func() time.Time { return issued.Add(80 * time.Second) }
	if _, err := m.Parse(tok, PurposeOAuthState); err != nil {
		t.Fatalf("within leeway: %v", err)
	}
	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := m.Parse(tok, PurposeOAuthState); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("past leeway: %v", err)
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	for _, cfg := range []Config{
		{Secret: []byte("short")},
		{Secret: testSecret, Leeway: -time.Second},
		{Secret: testSecret, Leeway: 3 * time.Minute},
	} {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("config %+v accepted", cfg)
		}
	}
}
