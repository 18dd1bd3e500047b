package main

import (
	"fmt"
	"os"
	"time"

	"github.com/MrEthical07/authgate"
	"gopkg.in/yaml.v3"
)

// settings is everything the service needs: the library config plus infrastructure.
type settings struct {
	Auth authgate.Config
	Env  authgate.Environment
}

// fileConfig mirrors the YAML layout. Absent keys keep the environment's values.
type fileConfig struct {
	App struct {
		Name     string `yaml:"name"`
		URL      string `yaml:"url"`
		BasePath string `yaml:"base_path"`
	} `yaml:"app"`
	TrustedOrigins []string `yaml:"trusted_origins"`
	Session        struct {
		ExpiresIn time.Duration `yaml:"expires_in"`
		UpdateAge time.Duration `yaml:"update_age"`
	} `yaml:"session"`
	Cookie struct {
		Prefix   string `yaml:"prefix"`
		SameSite string `yaml:"same_site"`
		Secure   *bool  `yaml:"secure"`
	} `yaml:"cookie"`
	EmailAndPassword struct {
		Enabled                  *bool `yaml:"enabled"`
		MinPasswordLength        int   `yaml:"min_password_length"`
		MaxPasswordLength        int   `yaml:"max_password_length"`
		RequireEmailVerification *bool `yaml:"require_email_verification"`
	} `yaml:"email_and_password"`
	RateLimit struct {
		Enabled       *bool         `yaml:"enabled"`
		DefaultMax    int           `yaml:"default_max"`
		DefaultWindow time.Duration `yaml:"default_window"`
		IPHeader      string        `yaml:"ip_header"`
	} `yaml:"rate_limit"`
	CORS struct {
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxAge         time.Duration `yaml:"max_age"`
	} `yaml:"cors"`
	DisabledPaths []string `yaml:"disabled_paths"`
	Redis         struct {
		Addr string `yaml:"addr"`
		DB   *int   `yaml:"db"`
	} `yaml:"redis"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
}

// loadSettings reads environ (the process environment when nil) and overlays path.
func loadSettings(environ map[string]string, path string) (settings, error) {
	e, err := authgate.LoadEnvironment(environ)
	if err != nil {
		return settings{}, err
	}
	s := settings{Auth: e.Config(), Env: e}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return settings{}, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &fc); err != nil {
			return settings{}, fmt.Errorf("unmarshal config: %w", err)
		}
		fc.apply(&s)
	}

	if err := s.Auth.Validate(); err != nil {
		return settings{}, err
	}
	return s, nil
}

func (fc *fileConfig) apply(s *settings) {
	cfg := &s.Auth
	setString(&cfg.App.Name, fc.App.Name)
	setString(&cfg.App.BaseURL, fc.App.URL)
	setString(&cfg.App.BasePath, fc.App.BasePath)
	if len(fc.TrustedOrigins) > 0 {
		cfg.TrustedOrigins = fc.TrustedOrigins
	}
	setDuration(&cfg.Session.ExpiresIn, fc.Session.ExpiresIn)
	setDuration(&cfg.Session.UpdateAge, fc.Session.UpdateAge)
	setString(&cfg.Cookie.Prefix, fc.Cookie.Prefix)
	setString(&cfg.Cookie.SameSite, fc.Cookie.SameSite)
	setBool(&cfg.Cookie.Secure, fc.Cookie.Secure)
	setBool(&cfg.EmailAndPassword.Enabled, fc.EmailAndPassword.Enabled)
	setInt(&cfg.EmailAndPassword.MinPasswordLength, fc.EmailAndPassword.MinPasswordLength)
	setInt(&cfg.EmailAndPassword.MaxPasswordLength, fc.EmailAndPassword.MaxPasswordLength)
	setBool(&cfg.EmailAndPassword.RequireEmailVerification, fc.EmailAndPassword.RequireEmailVerification)
	setBool(&cfg.RateLimit.Enabled, fc.RateLimit.Enabled)
	setInt(&cfg.RateLimit.DefaultMax, fc.RateLimit.DefaultMax)
	setDuration(&cfg.RateLimit.DefaultWindow, fc.RateLimit.DefaultWindow)
	setString(&cfg.RateLimit.IPHeader, fc.RateLimit.IPHeader)
	if len(fc.CORS.AllowedOrigins) > 0 {
		cfg.CORS.AllowedOrigins = fc.CORS.AllowedOrigins
	}
	setDuration(&cfg.CORS.MaxAge, fc.CORS.MaxAge)
	if fc.DisabledPaths != nil {
		cfg.DisabledPaths = fc.DisabledPaths
	}

	setString(&s.Env.RedisAddr, fc.Redis.Addr)
	if fc.Redis.DB != nil {
		s.Env.RedisDB = *fc.Redis.DB
	}
	setString(&s.Env.DatabasePath, fc.Database.Path)
	setString(&s.Env.HTTPAddr, fc.HTTP.Addr)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
