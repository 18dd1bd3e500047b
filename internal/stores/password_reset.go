package stores

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrResetNotFound         = errors.New("reset record not found")
	ErrResetSecretMismatch   = errors.New("reset secret mismatch")
	ErrResetAttemptsExceeded = errors.New("reset attempts exceeded")
	ErrResetRedisUnavailable = errors.New("reset redis unavailable")
)

// consumeScript returns {1, uid} on a match, {0} when the record is gone or
// stale, {-1} on a mismatch and {-2} once the mismatch budget is spent.
//
// KEYS[1] record; ARGV[1] provided digest (hex), ARGV[2] max attempts, ARGV[3] now (unix).
var consumeScript = redis.NewScript(`
local rec = redis.call("HMGET", KEYS[1], "uid", "sh", "exp")
if not rec[1] then
  return {0}
end
if tonumber(rec[3]) < tonumber(ARGV[3]) then
  redis.call("DEL", KEYS[1])
  return {0}
end
if rec[2] ~= ARGV[1] then
  local att = redis.call("HINCRBY", KEYS[1], "att", 1)
  if att >= tonumber(ARGV[2]) then
    redis.call("DEL", KEYS[1])
    return {-2}
  end
  return {-1}
end
redis.call("DEL", KEYS[1])
return {1, rec[1]}
`)

// PasswordResetRecord is the persisted half of a reset link.
type PasswordResetRecord struct {
	UserID     int64
	SecretHash [32]byte
	// ExpiresAt is a unix timestamp in seconds.
	ExpiresAt int64
	Attempts  uint16
}

// PasswordResetStore keeps reset records as Redis hashes. Every check-and-delete
// runs inside one script so concurrent confirmations cannot both succeed.
type PasswordResetStore struct {
	redis       redis.UniversalClient
	prefix      string
	maxAttempts int
	now         func() time.Time
}

func NewPasswordResetStore(client redis.UniversalClient, prefix string, maxAttempts int) *PasswordResetStore {
	if prefix == "" {
		prefix = "apr"
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &PasswordResetStore{redis: client, prefix: prefix, maxAttempts: maxAttempts, now: time.Now}
}

func (s *PasswordResetStore) key(resetID string) string {
	return s.prefix + ":" + resetID
}

func (s *PasswordResetStore) Save(ctx context.Context, resetID string, record *PasswordResetRecord, ttl time.Duration) error {
	key := s.key(resetID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"uid", record.UserID,
			"sh", hex.EncodeToString(record.SecretHash[:]),
			"exp", record.ExpiresAt,
			"att", record.Attempts,
		)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}
	return nil
}

// Consume deletes the record when providedHash matches and returns it. Digests
// are compared server-side; they are SHA-256 outputs, never the secret itself.
func (s *PasswordResetStore) Consume(ctx context.Context, resetID string, providedHash [32]byte) (*PasswordResetRecord, error) {
	res, err := consumeScript.Run(ctx, s.redis,
		[]string{s.key(resetID)},
		hex.EncodeToString(providedHash[:]), s.maxAttempts, s.now().Unix(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}

	status, _ := res[0].(int64)
	switch status {
	case 1:
		raw, _ := res[1].(string)
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, ErrResetNotFound
		}
		return &PasswordResetRecord{UserID: uid, SecretHash: providedHash}, nil
	case -1:
		return nil, ErrResetSecretMismatch
	case -2:
		return nil, ErrResetAttemptsExceeded
	default:
		return nil, ErrResetNotFound
	}
}

// Exists reports whether a record is still stored under resetID.
func (s *PasswordResetStore) Exists(ctx context.Context, resetID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(resetID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}
	return n == 1, nil
}
