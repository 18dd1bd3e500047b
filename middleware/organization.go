package middleware

import (
	"net/http"

	"github.com/MrEthical07/authgate"
)

// RequireOrganization admits only users attached to an organization.
func RequireOrganization(resolver UserResolver) func(http.Handler) http.Handler {
	return Guard(resolver, func(cu *authgate.CurrentUser) bool {
		return cu.Organization != nil
	})
}
