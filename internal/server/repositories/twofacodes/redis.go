package twofacodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authsvc/internal/common"
	"github.com/dmitrijs2005/authsvc/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces challenges in Redis.
const KeyPrefix = "two_fa_code:"

type storedChallenge struct {
	LoginAttemptID string `json:"login_attempt_id"`
	Code           string `json:"code"`
}

// RedisRepository keeps one JSON-encoded challenge per email under a key
// that Redis expires after the configured TTL.
type RedisRepository struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisRepository(client redis.Cmdable, ttl time.Duration) *RedisRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRepository{client: client, ttl: ttl}
}

func redisKey(email models.Email) string {
	return KeyPrefix + email.String()
}

func (r *RedisRepository) AddCode(ctx context.Context, email models.Email, attemptID models.LoginAttemptID, code models.TwoFACode) error {
	payload, err := json.Marshal(storedChallenge{LoginAttemptID: attemptID.String(), Code: code.Expose()})
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(email), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetCode(ctx context.Context, email models.Email) (models.LoginAttemptID, models.TwoFACode, error) {
	raw, err := r.client.Get(ctx, redisKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.LoginAttemptID{}, models.TwoFACode{}, common.ErrNotFound
		}
		return models.LoginAttemptID{}, models.TwoFACode{}, fmt.Errorf("redis error: %w", err)
	}

	var stored storedChallenge
	if err := json.Unmarshal(raw, &stored); err != nil {
		return models.LoginAttemptID{}, models.TwoFACode{}, fmt.Errorf("decode challenge: %w", err)
	}

	attemptID, err := models.ParseLoginAttemptID(stored.LoginAttemptID)
	if err != nil {
		return models.LoginAttemptID{}, models.TwoFACode{}, fmt.Errorf("decode challenge: %w", err)
	}
	code, err := models.ParseTwoFACode(stored.Code)
	if err != nil {
		return models.LoginAttemptID{}, models.TwoFACode{}, fmt.Errorf("decode challenge: %w", err)
	}

	return attemptID, code, nil
}

func (r *RedisRepository) RemoveCode(ctx context.Context, email models.Email) error {
	n, err := r.client.Del(ctx, redisKey(email)).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
