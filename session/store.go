package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no live session exists for an id.
	ErrNotFound = errors.New("session not found")
	// ErrRedisUnavailable wraps transport failures talking to Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// unindexScript deletes one session record and its entry in the owner's index.
var unindexScript = redis.NewScript(`
redis.call("SREM", KEYS[2], ARGV[1])
return redis.call("DEL", KEYS[1])
`)

// revokeAllScript deletes every session listed in a user index, then the index.
// ARGV[1] is the session key prefix including its separator.
var revokeAllScript = redis.NewScript(`
local ids = redis.call("SMEMBERS", KEYS[1])
for _, id in ipairs(ids) do
  redis.call("DEL", ARGV[1] .. id)
end
redis.call("DEL", KEYS[1])
return #ids
`)

// Options controls lifetime and renewal.
type Options struct {
	Prefix string
	// ExpiresIn is the lifetime granted at issuance and on each renewal.
	ExpiresIn time.Duration
	// UpdateAge is how old the last renewal must be before a read extends the session.
	// Zero disables renewal.
	UpdateAge time.Duration
}

// Store is a Redis-backed session store that handles persistence, expiration,
// sliding renewal, and per-user indexes for sign-out-everywhere.
type Store struct {
	redis redis.UniversalClient
	opts  Options
	now   func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
func NewStore(client redis.UniversalClient, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = "as"
	}
	if opts.ExpiresIn <= 0 {
		opts.ExpiresIn = 7 * 24 * time.Hour
	}
	return &Store{
		redis: client,
		opts:  opts,
		now:   time.Now,
	}
}

// ExpiresIn returns the configured session lifetime.
func (s *Store) ExpiresIn() time.Duration {
	return s.opts.ExpiresIn
}

func (s *Store) key(sessionID string) string {
	return s.opts.Prefix + ":" + sessionID
}

func (s *Store) userKey(userID int64) string {
	return s.opts.Prefix + ":u:" + strconv.FormatInt(userID, 10)
}

// Save persists sess until its ExpiresAt and indexes it under its user.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", sess.ID)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.ID), data, ttl)
		pipe.SAdd(ctx, s.userKey(sess.UserID), sess.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get loads a live session. When renewal is enabled and the session was last
// renewed more than UpdateAge ago, its expiry is pushed to now+ExpiresIn.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if sess.Expired(now) {
		if err := s.deleteSessionAndIndex(ctx, sess.UserID, sess.ID); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	if s.opts.UpdateAge <= 0 || now.Sub(sess.UpdatedAt) < s.opts.UpdateAge {
		return sess, nil
	}

	renewed, err := s.update(ctx, sessionID, func(sess *Session, now time.Time) time.Duration {
		sess.UpdatedAt = now
		sess.ExpiresAt = now.Add(s.opts.ExpiresIn)
		return s.opts.ExpiresIn
	})
	if errors.Is(err, errContended) {
		// Someone else rewrote the record; serve their version unrenewed.
		return s.load(ctx, sessionID)
	}
	return renewed, err
}

// SetActiveOrganization rewrites the session's active organization, keeping its TTL.
func (s *Store) SetActiveOrganization(ctx context.Context, sessionID string, orgID *int64) (*Session, error) {
	return s.update(ctx, sessionID, func(sess *Session, _ time.Time) time.Duration {
		sess.ActiveOrganizationID = orgID
		return 0
	})
}

const maxUpdateAttempts = 4

var errContended = errors.New("session updated concurrently")

// update applies mutate to the stored session and writes it back only if the key
// was untouched since it was read, so a concurrent delete or rewrite is never
// undone. mutate returns the new TTL, or 0 to keep the current one.
func (s *Store) update(ctx context.Context, sessionID string, mutate func(*Session, time.Time) time.Duration) (*Session, error) {
	key := s.key(sessionID)
	for range maxUpdateAttempts {
		var out *Session
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			sess, err := Decode(data)
			if err != nil {
				return err
			}
			now := s.now()
			if sess.Expired(now) {
				return ErrNotFound
			}
			ttl := mutate(sess, now)
			enc, err := Encode(sess)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if ttl > 0 {
					pipe.Set(ctx, key, enc, ttl)
				} else {
					pipe.SetArgs(ctx, key, enc, redis.SetArgs{KeepTTL: true})
				}
				return nil
			})
			if err != nil {
				return err
			}
			out = sess
			return nil
		}, key)

		switch {
		case err == nil:
			return out, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, redis.Nil), errors.Is(err, ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, ErrCorruptSession):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return nil, errContended
}

// Delete removes a session and its index entry. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return s.deleteSessionAndIndex(ctx, sess.UserID, sessionID)
}

// DeleteAllForUser removes every indexed session of a user in one atomic step.
func (s *Store) DeleteAllForUser(ctx context.Context, userID int64) error {
	err := revokeAllScript.Run(ctx, s.redis, []string{s.userKey(userID)}, s.opts.Prefix+":").Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ActiveSessionIDs lists the live sessions of a user and prunes index entries
// whose record already expired.
func (s *Store) ActiveSessionIDs(ctx context.Context, userID int64) ([]string, error) {
	userKey := s.userKey(userID)
	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	checks := make([]*redis.IntCmd, len(ids))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			checks[i] = pipe.Exists(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	live := ids[:0]
	var stale []any
	for i, id := range ids {
		if checks[i].Val() == 1 {
			live = append(live, id)
		} else {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		// Best effort; a failed prune only leaves stale ids for the next call.
		_ = s.redis.SRem(ctx, userKey, stale...).Err()
	}
	return live, nil
}

// Ping measures a Redis round-trip.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) load(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return Decode(data)
}

func (s *Store) deleteSessionAndIndex(ctx context.Context, userID int64, sessionID string) error {
	keys := []string{s.key(sessionID), s.userKey(userID)}
	if err := unindexScript.Run(ctx, s.redis, keys, sessionID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
