package password

// Hasher writes argon2id and also accepts legacy scrypt hashes, which always report
// NeedsUpgrade so they are rewritten on the next successful sign-in.
type Hasher struct {
	argon *Argon2
}

func New(cfg Config) (*Hasher, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return &Hasher{argon: a}, nil
}

func (h *Hasher) Hash(password string) (string, error) {
	return h.argon.Hash(password)
}

func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	if isScryptHash(encodedHash) {
		return verifyScrypt(password, encodedHash)
	}
	return h.argon.Verify(password, encodedHash)
}

func (h *Hasher) NeedsUpgrade(encodedHash string) (bool, error) {
	if isScryptHash(encodedHash) {
		return true, nil
	}
	return h.argon.NeedsUpgrade(encodedHash)
}
