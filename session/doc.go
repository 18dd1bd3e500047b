// Package session provides Redis-backed persistence for provider-issued sessions.
//
// # Encoding
//
// Sessions are stored as a versioned JSON envelope. Decoding rejects unknown
// versions instead of guessing.
//
// # Indexes
//
// Each user has a set of their session ids so sign-out-everywhere can run as one
// script. Index entries of expired sessions are pruned when listed.
//
// # Concurrent writes
//
// Renewal and active-organization changes read, modify and write the record
// under WATCH, so a delete or another update landing in between is never undone.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations) and the [Session] model. It does NOT
// parse cookies, verify credentials, or project the current user; the provider and the
// root package do.
//
// # What this package must NOT do
//
//   - Import authgate or provider (no upward imports).
//   - Store plaintext session secrets; only the SHA-256 of the token secret is kept.
package session
