// Package jwt issues and verifies short-lived, purpose-scoped HS256 tokens used in
// email verification links and OAuth state round-trips.
//
// A token minted for one purpose never verifies for another: the purpose travels
// in the "pur" claim and is checked on parse alongside signature, expiry and issuer.
package jwt
