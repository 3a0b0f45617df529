package lock

import (
	"context"
	_ "embed"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

//go:embed scripts/release.lua
var releaseScript string

// RedisStore keeps locks as plain keys with PX expiry.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	release *redis.Script
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, release: redis.NewScript(releaseScript)}
}

func (s *RedisStore) SetNX(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, owner, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis SETNX")
	}
	return ok, nil
}

func (s *RedisStore) CompareAndDelete(ctx context.Context, key, owner string) (bool, error) {
	n, err := s.release.Run(ctx, s.client, []string{s.prefix + key}, owner).Int()
	if err != nil {
		return false, errors.Wrap(err, "redis release script")
	}
	return n == 1, nil
}
