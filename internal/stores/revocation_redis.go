package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevocationList externalizes the blacklist to Redis, relying on key
// TTLs for eviction.
type RedisRevocationList struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisRevocationList(redisClient redis.UniversalClient, prefix string) *RedisRevocationList {
	if prefix == "" {
		prefix = "srv"
	}
	return &RedisRevocationList{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (l *RedisRevocationList) key(token string) string {
	return l.prefix + ":" + revocationKey(token)
}

func (l *RedisRevocationList) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if err := l.redis.Set(ctx, l.key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRevocationBackend, err)
	}
	return nil
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	_, err := l.redis.Get(ctx, l.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRevocationBackend, err)
	}
	return true, nil
}
