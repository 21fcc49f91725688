package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis command failure of [RedisBackend].
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisBackend persists the pair under one key per profile.
//
// The key carries a TTL equal to the refresh lifetime, so an abandoned profile
// disappears once its refresh token could no longer be used anyway.
//
//	Performance: Load is 1 GET, Save is 1 SET, Delete is 1 DEL.
type RedisBackend struct {
	redis   redis.UniversalClient
	prefix  string
	profile string
	ttl     time.Duration
}

// NewRedisBackend creates a RedisBackend. A ttl <= 0 stores the key without expiry.
func NewRedisBackend(client redis.UniversalClient, prefix, profile string, ttl time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = "gs"
	}
	if profile == "" {
		profile = "default"
	}
	return &RedisBackend{
		redis:   client,
		prefix:  prefix,
		profile: profile,
		ttl:     ttl,
	}
}

func (r *RedisBackend) key() string {
	return r.prefix + ":cred:" + r.profile
}

func (r *RedisBackend) Load(ctx context.Context) (Pair, error) {
	data, err := r.redis.Get(ctx, r.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Pair{}, ErrNotFound
		}
		return Pair{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	pair, err := Decode(data)
	if err != nil {
		// A corrupt blob can never be used again; drop it so the next Load is clean.
		_ = r.redis.Del(ctx, r.key()).Err()
		return Pair{}, ErrNotFound
	}
	return pair, nil
}

func (r *RedisBackend) Save(ctx context.Context, pair Pair) error {
	data, err := Encode(pair)
	if err != nil {
		return err
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := r.redis.Set(ctx, r.key(), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context) error {
	if err := r.redis.Del(ctx, r.key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (r *RedisBackend) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
