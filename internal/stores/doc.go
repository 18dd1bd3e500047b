// Package stores holds the short-lived Redis records behind password reset links.
//
// A record is a Redis hash with a TTL. Consume is a single Lua script that checks
// expiry, compares the SHA-256 digest of the presented secret, counts mismatches
// and deletes the record on success or once the mismatch budget is spent. Records
// are single-use.
//
// The package never sees plaintext secrets, only their digests.
package stores
