package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Plugin bundles hooks and rate-limit rules under an id.
type Plugin struct {
	ID        string
	Hooks     Hooks
	RateLimit []RateLimitRule
}

type Hooks struct {
	Before []Hook
	After  []Hook
}

// Hook runs Handler for requests accepted by Matcher. A nil Matcher matches every path.
type Hook struct {
	Matcher func(*HookContext) bool
	Handler func(*HookContext) error
}

// RateLimitRule allows at most Max requests per Window for paths accepted by PathMatcher,
// counted per client IP.
type RateLimitRule struct {
	PathMatcher func(path string) bool
	Max         int
	Window      time.Duration
}

// PathIn returns a matcher accepting exactly the listed paths.
func PathIn(paths ...string) func(string) bool {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(path string) bool {
		_, ok := set[path]
		return ok
	}
}

// Response is what an endpoint produced. After-hooks may rewrite it.
type Response struct {
	Status   int
	Body     any
	Location string
	Cookies  []*http.Cookie
}

// HookContext is shared by hooks and the endpoint for one request.
type HookContext struct {
	Request *http.Request
	// Path is the request path relative to the provider base path, e.g. "/sign-in/email".
	Path string
	// Body holds the raw request body, read once.
	Body []byte
	// Response is set for after-hooks only.
	Response *Response

	once   sync.Once
	fields map[string]any
}

// Context returns the request context.
func (c *HookContext) Context() context.Context {
	return c.Request.Context()
}

// DecodeBody unmarshals the JSON body into v.
func (c *HookContext) DecodeBody(v any) error {
	if len(c.Body) == 0 {
		return errInvalidBody
	}
	if err := json.Unmarshal(c.Body, v); err != nil {
		return errInvalidBody
	}
	return nil
}

// BodyString returns a top-level string field of the JSON body, or "" when the body
// is not an object or the field is missing or not a string.
func (c *HookContext) BodyString(key string) string {
	c.once.Do(func() {
		if len(c.Body) == 0 {
			return
		}
		_ = json.Unmarshal(c.Body, &c.fields)
	})
	s, _ := c.fields[key].(string)
	return s
}

// UserCreateInput is passed through every UserCreateHook before a user is inserted.
type UserCreateInput struct {
	User *User
	// Provider is the source of the creation: ProviderCredential or a social provider id.
	Provider string
}

// UserCreateHook may mutate in.User or reject the creation with an error.
type UserCreateHook func(ctx context.Context, in *UserCreateInput) error
