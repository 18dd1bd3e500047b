// Package authgate wires request-scoped authentication into an HTTP server: a gateway
// that forwards the auth namespace to the identity provider, a header context for
// code that does not hold the request, and a projector that turns the provider's
// session lookup into a normalized current user.
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Auth], [Builder], [Config], [Gateway],
// [HeaderStore], [Projector] and the policy values ([LoginPlugin], [SignupPolicy],
// [CORSPolicy]). Credential checks, session issuance and OAuth exchange live in the
// provider package; Redis-backed counters, reset records and audit dispatch live under
// internal/.
//
// # Concurrency
//
// [Auth], [Gateway] and [Projector] are safe for concurrent use after [Builder.Build].
// The process-wide [HeaderStore] is memory safe but last-write-wins: per-request
// identity under concurrent load must travel in the request context
// ([WithRequestHeaders]), which the projector prefers.
//
// # What this package must NOT do
//
//   - Hash passwords, mint session tokens or speak OAuth; the provider does.
//   - Apply database migrations.
//   - Let an identity lookup failure escape the projector as an error or panic.
package authgate
