package password

import "errors"

var (
	ErrTooShort = errors.New("password too short")
	ErrTooLong  = errors.New("password too long")
)

// Policy bounds the byte length of new passwords.
type Policy struct {
	MinLength int
	MaxLength int
}

// DefaultPolicy matches the email-and-password sign-in defaults: 8 to 20 bytes.
func DefaultPolicy() Policy {
	return Policy{MinLength: 8, MaxLength: 20}
}

// Check returns ErrTooShort or ErrTooLong; bytes are counted as given, without normalization.
func (p Policy) Check(password string) error {
	if len(password) < p.MinLength {
		return ErrTooShort
	}
	if p.MaxLength > 0 && len(password) > p.MaxLength {
		return ErrTooLong
	}
	return nil
}
