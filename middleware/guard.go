package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/authgate"
)

// UserResolver is satisfied by *authgate.Auth and *authgate.Projector.
type UserResolver interface {
	CurrentUser(ctx context.Context) (*authgate.CurrentUser, bool)
}

type currentUserContextKey struct{}

func CurrentUserFromContext(ctx context.Context) (*authgate.CurrentUser, bool) {
	cu, ok := ctx.Value(currentUserContextKey{}).(*authgate.CurrentUser)
	return cu, ok && cu != nil
}

// Guard resolves the current user and hands it to allow. Requests are rejected
// with 401 when there is no valid session and with 403 when allow returns false.
func Guard(resolver UserResolver, allow func(*authgate.CurrentUser) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := r.Context()
			if _, ok := authgate.RequestHeadersFromContext(ctx); !ok {
				ctx = authgate.WithRequestHeaders(ctx, r.Header)
			}

			cu, ok := resolver.CurrentUser(ctx)
			if !ok || !cu.Session.IsValid {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if allow != nil && !allow(cu) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx = context.WithValue(ctx, currentUserContextKey{}, cu)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser admits any request carrying a valid session.
func RequireUser(resolver UserResolver) func(http.Handler) http.Handler {
	return Guard(resolver, nil)
}
