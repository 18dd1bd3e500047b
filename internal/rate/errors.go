package rate

import "errors"

var (
	// ErrRedisUnavailable wraps transport failures talking to Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrInvalidRule is returned for rules with a non-positive budget or window.
	ErrInvalidRule = errors.New("invalid rate limit rule")
)
