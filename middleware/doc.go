// Package middleware adapts authgate's current-user projection to net/http handlers.
//
// # Handlers
//
//   - [CaptureHeaders] records inbound headers where the projector can find them.
//   - [RequireUser] rejects requests without a valid session.
//   - [RequireOrganization] additionally requires the user to belong to an organization.
//
// Guards place the projected [authgate.CurrentUser] on the request context; read it
// back with [CurrentUserFromContext].
//
// This package makes no session decisions of its own. It only translates the
// projector's answer into a pass or a 401/403.
package middleware
