package password

import (
	"errors"
	"strings"
	"testing"
)

// fastConfig keeps tests quick while staying above the minimum costs.
func fastConfig() Config {
	return Config{Memory: minMemoryKB, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func mustArgon2(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	a, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return a
}

func TestArgon2RoundTrip(t *testing.T) {
	a := mustArgon2(t, fastConfig())

	hash, err := a.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	for _, tc := range []struct {
		password string
		want     bool
	}{
		{"correct-horse", true},
		{"correct-horsE", false},
		{"", false},
	} {
		ok, err := a.Verify(tc.password, hash)
		if err != nil {
			t.Fatalf("Verify(%q): %v", tc.password, err)
		}
		if ok != tc.want {
			t.Fatalf("Verify(%q) = %v, want %v", tc.password, ok, tc.want)
		}
	}

	again, _ := a.Hash("correct-horse")
	if again == hash {
		t.Fatal("two hashes of one password share a salt")
	}
}

func TestArgon2RejectsWeakConfig(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = minMemoryKB - 1 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := fastConfig()
			mutate(&cfg)
			if _, err := NewArgon2(cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	weak := mustArgon2(t, fastConfig())
	hash, err := weak.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if up, err := weak.NeedsUpgrade(hash); err != nil || up {
		t.Fatalf("same config: upgrade=%v err=%v", up, err)
	}

	stronger := fastConfig()
	stronger.Time = 2
	if up, err := mustArgon2(t, stronger).NeedsUpgrade(hash); err != nil || !up {
		t.Fatalf("stronger config: upgrade=%v err=%v", up, err)
	}

	longer := fastConfig()
	longer.KeyLength = 64
	if up, _ := mustArgon2(t, longer).NeedsUpgrade(hash); !up {
		t.Fatal("key length change must trigger an upgrade")
	}
}

func TestArgon2MalformedHashes(t *testing.T) {
	a := mustArgon2(t, fastConfig())
	valid, _ := a.Hash("correct-horse")
	parts := strings.Split(valid, "$")

	for name, encoded := range map[string]string{
		"empty":           "",
		"not phc":         "plain-text",
		"wrong algorithm": strings.Replace(valid, "argon2id", "argon2i", 1),
		"wrong version":   strings.Replace(valid, "v=19", "v=16", 1),
		"missing param":   "$argon2id$v=19$m=8192,t=1$" + parts[4] + "$" + parts[5],
		"unknown param":   "$argon2id$v=19$m=8192,t=1,x=1$" + parts[4] + "$" + parts[5],
		"low memory":      "$argon2id$v=19$m=1,t=1,p=1$" + parts[4] + "$" + parts[5],
		"bad salt":        "$argon2id$v=19$m=8192,t=1,p=1$!!$" + parts[5],
		"short salt":      "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA==$" + parts[5],
		"empty key":       "$argon2id$v=19$m=8192,t=1,p=1$" + parts[4] + "$",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := a.Verify("correct-horse", encoded); !errors.Is(err, errMalformedHash) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestHashEmptyPassword(t *testing.T) {
	if _, err := mustArgon2(t, fastConfig()).Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("err = %v", err)
	}
}
