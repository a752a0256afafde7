package bannedtokens

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces revocation entries in Redis.
const KeyPrefix = "banned_token:"

// RedisRepository keeps revocation entries as Redis keys with a TTL, so
// expiry is handled by the server.
type RedisRepository struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisRepository(client redis.Cmdable) *RedisRepository {
	return &RedisRepository{client: client, now: time.Now}
}

func redisKey(token string) string {
	return KeyPrefix + TokenKey(token)
}

func (r *RedisRepository) IsBanned(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRepository) Ban(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, redisKey(token), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// BanIfAbsent relies on SET NX for atomicity.
func (r *RedisRepository) BanIfAbsent(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return false, nil
	}
	created, err := r.client.SetNX(ctx, redisKey(token), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return created, nil
}
