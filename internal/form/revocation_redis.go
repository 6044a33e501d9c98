package form

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"onboarding-gateway/internal/platform/redis"
	id "onboarding-gateway/pkg/domain"
)

const revocationKeyPrefix = "form:revoked:"

// RedisRevocationList backs the deny list with Redis so every instance of the
// service sees a revocation immediately. Keys expire on their own once the
// underlying token could no longer validate anyway.
type RedisRevocationList struct {
	client *redis.Client
}

func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

var _ RevocationList = (*RedisRevocationList)(nil)

func (l *RedisRevocationList) Revoke(ctx context.Context, instanceID id.FormInstanceID, ttl time.Duration) error {
	key := revocationKeyPrefix + instanceID.String()
	if err := l.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke form instance: %w", err)
	}
	return nil
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, instanceID id.FormInstanceID) (bool, error) {
	key := revocationKeyPrefix + instanceID.String()
	if err := l.client.Get(ctx, key).Err(); err != nil {
		if err == goredis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("check form revocation: %w", err)
	}
	return true, nil
}
