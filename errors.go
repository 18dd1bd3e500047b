package authgate

import "errors"

var (
	// ErrConfigInvalid wraps every Config.Validate failure.
	ErrConfigInvalid = errors.New("invalid authgate config")
	// ErrBuilderUsed is returned by a second Build call on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrRedisRequired is returned by Build without a Redis client.
	ErrRedisRequired = errors.New("redis client required")
	// ErrStoreRequired is returned by Build without user and account stores.
	ErrStoreRequired = errors.New("user and account stores required")
	// ErrEnvConfig wraps environment parsing failures.
	ErrEnvConfig = errors.New("environment config")
)
