package password

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/text/unicode/norm"
)

// Parameters of hashes written by the Node identity stack that previously owned the
// accounts table: "<hex salt>:<hex key>", the hex salt text itself used as salt bytes.
const (
	scryptN      = 16384
	scryptR      = 16
	scryptP      = 1
	scryptKeyLen = 64
)

var errMalformedScrypt = errors.New("malformed scrypt hash")

// isScryptHash reports whether encoded looks like "<salt>:<key>".
func isScryptHash(encoded string) bool {
	salt, key, ok := strings.Cut(encoded, ":")
	return ok && salt != "" && len(key) == 2*scryptKeyLen && !strings.HasPrefix(encoded, "$")
}

// verifyScrypt checks password against a legacy "<salt>:<key>" hash. The password is
// NFKC-normalized before derivation.
func verifyScrypt(password, encoded string) (bool, error) {
	salt, keyHex, ok := strings.Cut(encoded, ":")
	if !ok || salt == "" {
		return false, errMalformedScrypt
	}
	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) != scryptKeyLen {
		return false, errMalformedScrypt
	}

	got, err := scrypt.Key([]byte(norm.NFKC.String(password)), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
