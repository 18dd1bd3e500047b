// Package internal contains helpers private to authgate: opaque token minting
// and parsing for sessions and password-reset links.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - rate — Redis-backed fixed-window limiter for the provider rate-limit table
//   - stores — Redis-backed single-use password reset records
//
// # What this package must NOT do
//
//   - Export types that appear in the public authgate API.
//   - Be imported by any package outside the authgate module.
package internal
