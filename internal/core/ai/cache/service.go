package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"culinai/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "culinai:ai:response:"

// RedisStore Redis 快取
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 創建 Redis 快取並測試連線
func NewRedisStore(ctx context.Context, client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Get 獲取緩存
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	return val, nil
}

// Set 設置緩存
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Close Redis 連線由呼叫端共用，這裡不關閉
func (s *RedisStore) Close() error {
	return nil
}
