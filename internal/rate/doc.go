// Package rate provides the Redis-backed fixed-window limiter that enforces the
// provider's rate-limit table.
//
// # Window semantics
//
// Fixed-window counters: one Lua script does INCR, arms PEXPIRE on the first hit
// and reads the remaining PTTL, so a window can never lose its expiry. Keys are
// "<prefix>:<client>:<path>", so each rule is counted per client address and path.
//
// # What this package must NOT do
//
//   - Decide which paths are limited (rules come from provider plugins).
//   - Be imported outside the authgate module.
package rate
