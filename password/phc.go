package password

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

var errMalformedHash = errors.New("malformed argon2id hash")

// phc is a decoded argon2id PHC string:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
type phc struct {
	params Config
	salt   []byte
	key    []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		p.params.Memory,
		p.params.Time,
		p.params.Parallelism,
		base64.StdEncoding.EncodeToString(p.salt),
		base64.StdEncoding.EncodeToString(p.key),
	)
}

func parsePHC(encoded string) (phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != algorithmID {
		return phc{}, errMalformedHash
	}

	version, ok := strings.CutPrefix(fields[2], "v=")
	if !ok {
		return phc{}, fmt.Errorf("%w: missing version", errMalformedHash)
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return phc{}, fmt.Errorf("%w: unsupported version %q", errMalformedHash, version)
	}

	var out phc
	seen := 0
	for _, kv := range strings.Split(fields[3], ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return phc{}, fmt.Errorf("%w: parameter %q", errMalformedHash, kv)
		}
		switch name {
		case "m":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil || uint32(n) < minMemoryKB {
				return phc{}, fmt.Errorf("%w: memory %q", errMalformedHash, value)
			}
			out.params.Memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil || uint32(n) < minTimeCost {
				return phc{}, fmt.Errorf("%w: time %q", errMalformedHash, value)
			}
			out.params.Time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(value, 10, 8)
			if err != nil || uint8(n) < minParallelism {
				return phc{}, fmt.Errorf("%w: parallelism %q", errMalformedHash, value)
			}
			out.params.Parallelism = uint8(n)
		default:
			return phc{}, fmt.Errorf("%w: unknown parameter %q", errMalformedHash, name)
		}
		seen++
	}
	if seen != 3 || out.params.Memory == 0 || out.params.Time == 0 || out.params.Parallelism == 0 {
		return phc{}, fmt.Errorf("%w: missing parameters", errMalformedHash)
	}

	var err error
	if out.salt, err = base64.StdEncoding.DecodeString(fields[4]); err != nil || len(out.salt) < int(minSaltLength) {
		return phc{}, fmt.Errorf("%w: salt", errMalformedHash)
	}
	if out.key, err = base64.StdEncoding.DecodeString(fields[5]); err != nil || len(out.key) == 0 {
		return phc{}, fmt.Errorf("%w: key", errMalformedHash)
	}
	out.params.SaltLength = uint32(len(out.salt))
	out.params.KeyLength = uint32(len(out.key))
	return out, nil
}
