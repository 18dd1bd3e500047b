package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"AUTH_SECRET": "0123456789abcdef0123456789abcdef",
		"AUTH_URL":    "https://api.example.com/",
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSettingsFromEnvironment(t *testing.T) {
	s, err := loadSettings(baseEnv(), "")
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", s.Auth.App.BaseURL)
	assert.Equal(t, "/api/auth", s.Auth.App.BasePath)
	assert.Equal(t, "localhost:6379", s.Env.RedisAddr)
	assert.Equal(t, "authgate.db", s.Env.DatabasePath)
	assert.Equal(t, ":8080", s.Env.HTTPAddr)
	assert.Equal(t, 587, s.Env.SMTP.Port)
}

func TestLoadSettingsRequiresSecret(t *testing.T) {
	env := baseEnv()
	delete(env, "AUTH_SECRET")
	_, err := loadSettings(env, "")
	assert.True(t, errors.Is(err, authgate.ErrEnvConfig), "err = %v", err)
}

func TestLoadSettingsYAMLOverlay(t *testing.T) {
	t.Setenv("AUTHGATE_TEST_ORIGIN", "https://app.example.com")
	path := writeFile(t, `
app:
  name: acme
trusted_origins:
  - ${AUTHGATE_TEST_ORIGIN}
session:
  expires_in: 48h
cookie:
  prefix: acme
  same_site: lax
rate_limit:
  default_max: 50
  default_window: 30s
disabled_paths: []
redis:
  addr: redis:6379
  db: 2
database:
  path: /var/lib/authgate.db
http:
  addr: :9090
`)

	s, err := loadSettings(baseEnv(), path)
	require.NoError(t, err)

	assert.Equal(t, "acme", s.Auth.App.Name)
	assert.Equal(t, []string{"https://app.example.com"}, s.Auth.TrustedOrigins)
	assert.Equal(t, 48*time.Hour, s.Auth.Session.ExpiresIn)
	assert.Equal(t, "acme", s.Auth.Cookie.Prefix)
	assert.Equal(t, "lax", s.Auth.Cookie.SameSite)
	assert.True(t, s.Auth.Cookie.Secure)
	assert.Equal(t, 50, s.Auth.RateLimit.DefaultMax)
	assert.Equal(t, 30*time.Second, s.Auth.RateLimit.DefaultWindow)
	assert.Empty(t, s.Auth.DisabledPaths)
	assert.Equal(t, "redis:6379", s.Env.RedisAddr)
	assert.Equal(t, 2, s.Env.RedisDB)
	assert.Equal(t, "/var/lib/authgate.db", s.Env.DatabasePath)
	assert.Equal(t, ":9090", s.Env.HTTPAddr)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, "/api/auth", s.Auth.App.BasePath)
	assert.True(t, s.Auth.EmailAndPassword.RequireEmailVerification)
}

func TestLoadSettingsRejectsInvalidFile(t *testing.T) {
	_, err := loadSettings(baseEnv(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = loadSettings(baseEnv(), writeFile(t, "app: [not, a, map"))
	require.Error(t, err)

	_, err = loadSettings(baseEnv(), writeFile(t, "email_and_password:\n  min_password_length: 30\n"))
	assert.ErrorIs(t, err, authgate.ErrConfigInvalid)
}
