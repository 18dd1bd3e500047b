package middleware

import (
	"net/http"

	"github.com/MrEthical07/authgate"
)

// CaptureHeaders writes every request's headers into store and onto the request
// context. A nil store skips the process-wide slot and only uses the context.
func CaptureHeaders(store *authgate.HeaderStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store != nil {
				store.SetHeaders(r.Header)
			}
			ctx := authgate.WithRequestHeaders(r.Context(), r.Header)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
