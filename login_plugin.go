package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authgate/provider"
)

// LoginPluginID identifies the pre-auth guard among provider plugins.
const LoginPluginID = "login-plugin"

// ErrNoUserWithEmail is the guard rejection. The message reveals whether an account
// exists; it is kept as-is until product decides otherwise.
var ErrNoUserWithEmail = provider.BadRequest("No user found with this email")

// LoginEndpoints are the provider paths guarded by LoginPlugin.
var LoginEndpoints = []string{"/sign-in/email", "/forget-password", "/send-verification-email"}

// UserExistence answers whether an account exists for an email address.
type UserExistence interface {
	UserExistsByEmail(ctx context.Context, email string) (bool, error)
}

// UserExistenceFunc adapts a function to UserExistence.
type UserExistenceFunc func(ctx context.Context, email string) (bool, error)

func (f UserExistenceFunc) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	return f(ctx, email)
}

// UserStoreExistence derives UserExistence from a provider user store.
func UserStoreExistence(users provider.UserStore) UserExistence {
	return UserExistenceFunc(func(ctx context.Context, email string) (bool, error) {
		_, err := users.UserByEmail(ctx, email)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, provider.ErrNotFound):
			return false, nil
		default:
			return false, err
		}
	})
}

// LoginPlugin rejects requests to LoginEndpoints whose body names an unknown email,
// before the provider endpoint runs, and caps /forget-password at 10 per minute.
// Lookup errors are returned unchanged and surface as 500.
func LoginPlugin(lookup UserExistence) provider.Plugin {
	matches := provider.PathIn(LoginEndpoints...)
	return provider.Plugin{
		ID: LoginPluginID,
		Hooks: provider.Hooks{
			Before: []provider.Hook{{
				Matcher: func(hc *provider.HookContext) bool {
					return matches(hc.Path)
				},
				Handler: func(hc *provider.HookContext) error {
					email := hc.BodyString("email")
					exists, err := lookup.UserExistsByEmail(hc.Context(), email)
					if err != nil {
						return fmt.Errorf("user existence lookup: %w", err)
					}
					if !exists {
						return ErrNoUserWithEmail
					}
					return nil
				},
			}},
		},
		RateLimit: []provider.RateLimitRule{{
			PathMatcher: provider.PathIn("/forget-password"),
			Max:         10,
			Window:      60 * time.Second,
		}},
	}
}
