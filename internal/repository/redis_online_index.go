package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"meme-guard-go/internal/model"
)

const onlineKeyPrefix = "features:online:"

// RedisOnlineIndex 把标签向量以 JSON 字符串存入 Redis，ttl 为 0 时不过期。
type RedisOnlineIndex struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRedisOnlineIndex 创建一个新的 RedisOnlineIndex 实例。
func NewRedisOnlineIndex(redisClient *redis.Client, ttl time.Duration) *RedisOnlineIndex {
	return &RedisOnlineIndex{redisClient: redisClient, ttl: ttl}
}

// OnlineKey 返回帖子在 Redis 中的 key。
func OnlineKey(postID string) string {
	return onlineKeyPrefix + postID
}

// Upsert 逐条 SET，单个 key 的写入是原子的。
func (r *RedisOnlineIndex) Upsert(ctx context.Context, rows []model.FeatureRow) error {
	for _, row := range rows {
		data, err := json.Marshal(row.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags for %s: %w", row.PostID, err)
		}
		if err := r.redisClient.Set(ctx, OnlineKey(row.PostID), string(data), r.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set online features for %s: %w", row.PostID, err)
		}
	}
	return nil
}

// Lookup 读取标签向量，key 不存在时返回 ErrNotFound。
func (r *RedisOnlineIndex) Lookup(ctx context.Context, postID string) (model.TagVector, error) {
	data, err := r.redisClient.Get(ctx, OnlineKey(postID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get online features: %w", err)
	}
	var tags model.TagVector
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal online features: %w", err)
	}
	return tags, nil
}

// Reset 用 SCAN 删除所有在线特征 key。
func (r *RedisOnlineIndex) Reset(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.redisClient.Scan(ctx, cursor, onlineKeyPrefix+"*", 500).Result()
		if err != nil {
			return fmt.Errorf("failed to scan online keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.redisClient.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete online keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
