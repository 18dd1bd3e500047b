// Package provider is the identity provider behind the authgate gateway.
//
// It serves the authentication endpoints (email sign-in, sign-out, session lookup,
// password reset, email verification, social sign-in, organization selection), runs
// plugin hooks around them, enforces the plugin rate-limit table, and resolves a
// request's headers to the signed-in (user, session) pair.
//
// # Architecture boundaries
//
// Persistence of users, accounts and organizations is delegated to the [UserStore],
// [AccountStore] and [OrganizationStore] interfaces. Sessions, reset records and rate
// counters live in Redis. Hashing is done by the password package and signed tokens
// by the jwt package.
//
// # Hooks
//
// Before-hooks run after rate limiting and before the endpoint. An [*APIError]
// returned from a hook short-circuits the request with its status and a
// {"message": ...} JSON body. After-hooks see the endpoint's [Response].
//
// # What this package must NOT do
//
//   - Import the root authgate package.
//   - Persist plaintext passwords or session secrets.
package provider
