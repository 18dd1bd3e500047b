package authgate

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Environment is the raw process environment read by LoadEnvironment. The CLI uses the
// infrastructure fields (Redis, database, SMTP, listen address); Config() maps the rest.
type Environment struct {
	Secret         string   `env:"AUTH_SECRET,required"`
	URL            string   `env:"AUTH_URL,required"`
	BasePath       string   `env:"AUTH_BASE_PATH" envDefault:"/api/auth"`
	AppName        string   `env:"AUTH_APP_NAME" envDefault:"authgate"`
	TrustedOrigins []string `env:"AUTH_TRUSTED_ORIGINS" envSeparator:","`
	CORSOrigins    []string `env:"AUTH_CORS_ORIGINS" envSeparator:","`
	IPHeader       string   `env:"AUTH_IP_HEADER"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	RedisAddr     string `env:"AUTH_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"AUTH_REDIS_PASSWORD"`
	RedisDB       int    `env:"AUTH_REDIS_DB" envDefault:"0"`

	DatabasePath string `env:"AUTH_DATABASE_PATH" envDefault:"authgate.db"`
	HTTPAddr     string `env:"AUTH_HTTP_ADDR" envDefault:":8080"`

	SMTP SMTPEnvironment `envPrefix:"SMTP_"`
}

// SMTPEnvironment configures outgoing mail. An empty Host means mail is only logged.
type SMTPEnvironment struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"no-reply@localhost"`
}

// LoadEnvironment parses environ, or the process environment when environ is nil.
func LoadEnvironment(environ map[string]string) (Environment, error) {
	var e Environment
	var err error
	if environ == nil {
		err = env.Parse(&e)
	} else {
		err = env.ParseWithOptions(&e, env.Options{Environment: environ})
	}
	if err != nil {
		return Environment{}, fmt.Errorf("%w: %v", ErrEnvConfig, err)
	}
	return e, nil
}

// Config overlays the environment on DefaultConfig. Empty lists keep the defaults.
func (e Environment) Config() Config {
	cfg := DefaultConfig()
	cfg.App.Name = e.AppName
	cfg.App.BaseURL = strings.TrimRight(e.URL, "/")
	cfg.App.BasePath = e.BasePath
	cfg.App.Secret = []byte(e.Secret)
	cfg.Google = GoogleConfig{
		ClientID:     e.GoogleClientID,
		ClientSecret: e.GoogleClientSecret,
	}
	if origins := trimList(e.TrustedOrigins); len(origins) > 0 {
		cfg.TrustedOrigins = origins
	}
	if origins := trimList(e.CORSOrigins); len(origins) > 0 {
		cfg.CORS.AllowedOrigins = origins
	}
	cfg.RateLimit.IPHeader = e.IPHeader
	return cfg
}

// LoadConfigFromEnv reads the process environment and returns a validated Config.
func LoadConfigFromEnv() (Config, error) {
	e, err := LoadEnvironment(nil)
	if err != nil {
		return Config{}, err
	}
	cfg := e.Config()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
