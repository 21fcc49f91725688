package rate

import "errors"

var (
	// ErrRateLimited is returned once a window's budget is used up.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps every Redis failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
