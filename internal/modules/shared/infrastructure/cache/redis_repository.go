package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docchain/internal/config"
)

const keyPrefix = "docchain:aadhaar:"

// RedisIdentifierCache 画像ダイジェスト → Aadhaar番号 のRedis実装
type RedisIdentifierCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIdentifierCache 新しいRedisIdentifierCacheを作成
func NewRedisIdentifierCache(cfg *config.RedisConfig, ttl time.Duration) (*RedisIdentifierCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 接続確認
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisIdentifierCache{client: client, ttl: ttl}, nil
}

// Lookup ダイジェストに対応する番号を取得
func (r *RedisIdentifierCache) Lookup(ctx context.Context, digest string) (string, bool, error) {
	val, err := r.client.Get(ctx, keyPrefix+digest).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cache: %w", err)
	}
	return val, true, nil
}

// Store ダイジェストと番号を保存
func (r *RedisIdentifierCache) Store(ctx context.Context, digest, number string) error {
	if err := r.client.Set(ctx, keyPrefix+digest, number, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Close Redis接続を閉じる
func (r *RedisIdentifierCache) Close() error {
	return r.client.Close()
}
