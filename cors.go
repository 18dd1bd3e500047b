package authgate

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
)

// CORSConfig is the cross-origin policy applied in front of the gateway.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig allows the two local frontends with credentials.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"http://localhost:3001", "http://localhost:3000"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
			http.MethodPatch,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			"X-Requested-With",
			"Accept",
			"Origin",
			"Cache-Control",
			"X-Api-Key",
			"X-Organization-Id",
		},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
}

func (c CORSConfig) clone() CORSConfig {
	out := c
	out.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	out.AllowedMethods = append([]string(nil), c.AllowedMethods...)
	out.AllowedHeaders = append([]string(nil), c.AllowedHeaders...)
	out.ExposedHeaders = append([]string(nil), c.ExposedHeaders...)
	return out
}

func (c CORSConfig) validate() error {
	if c.MaxAge < 0 {
		return invalid("CORS MaxAge must be >= 0")
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" && c.AllowCredentials {
			return invalid("CORS wildcard origin cannot be combined with credentials")
		}
		if o == "" {
			return invalid("CORS origin must not be empty")
		}
	}
	for _, m := range c.AllowedMethods {
		if m == "" {
			return invalid("CORS method list contains an empty entry")
		}
	}
	return nil
}

// CORSPolicy returns middleware enforcing cfg. Requests from origins outside the list
// get no Access-Control-Allow-* headers; preflights are answered without reaching next.
func CORSPolicy(cfg CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           int(cfg.MaxAge / time.Second),
	})
}
