package authgate

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/authgate/provider"
)

// ErrSignupDisabled rejects user creation from any source other than Google.
var ErrSignupDisabled = provider.BadRequest("Signup is disabled for email registration")

// SignupPolicy is a user-create hook that only lets Google sign-in create accounts.
func SignupPolicy(logger *slog.Logger) provider.UserCreateHook {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, in *provider.UserCreateInput) error {
		if in.Provider == "google" {
			logger.InfoContext(ctx, "allowing google user creation", slog.String("email", in.User.Email))
			return nil
		}
		return ErrSignupDisabled
	}
}
