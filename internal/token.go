package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const secretSize = 32

// ErrMalformedToken is returned when an opaque token cannot be split into id and secret.
var ErrMalformedToken = errors.New("malformed token")

// OpaqueToken is "<uuid>.<base64url secret>". The id addresses a stored record;
// only the SHA-256 of the secret is ever persisted.
type OpaqueToken struct {
	ID     string
	Secret [secretSize]byte
}

// NewOpaqueToken mints a fresh id and secret.
func NewOpaqueToken() (OpaqueToken, error) {
	var tok OpaqueToken
	id, err := uuid.NewRandom()
	if err != nil {
		return tok, err
	}
	tok.ID = id.String()
	if _, err := rand.Read(tok.Secret[:]); err != nil {
		return tok, err
	}
	return tok, nil
}

func (t OpaqueToken) String() string {
	return t.ID + "." + base64.RawURLEncoding.EncodeToString(t.Secret[:])
}

// Hash returns the digest stored alongside the record.
func (t OpaqueToken) Hash() [32]byte {
	return sha256.Sum256(t.Secret[:])
}

// ParseOpaqueToken reverses [OpaqueToken.String].
func ParseOpaqueToken(raw string) (OpaqueToken, error) {
	var tok OpaqueToken

	id, secret, ok := strings.Cut(raw, ".")
	if !ok || id == "" || secret == "" {
		return tok, ErrMalformedToken
	}
	if _, err := uuid.Parse(id); err != nil {
		return tok, ErrMalformedToken
	}

	decoded, err := base64.RawURLEncoding.DecodeString(secret)
	if err != nil || len(decoded) != secretSize {
		return tok, ErrMalformedToken
	}

	tok.ID = id
	copy(tok.Secret[:], decoded)
	return tok, nil
}
