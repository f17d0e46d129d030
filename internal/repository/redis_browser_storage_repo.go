package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisStoragePrefix = "internhub:storage:"

// RedisBrowserStorageRepo はRedisを使用したブラウザストレージリポジトリ。
// ブラウザごとに1つのハッシュを持ち、有効期限はキーのTTLで管理する。
type RedisBrowserStorageRepo struct {
	rdb redis.Cmdable
}

// NewRedisBrowserStorageRepo はRedisBrowserStorageRepoを生成する。
func NewRedisBrowserStorageRepo(rdb redis.Cmdable) *RedisBrowserStorageRepo {
	return &RedisBrowserStorageRepo{rdb: rdb}
}

func redisStorageKey(browserID string) string {
	return redisStoragePrefix + browserID
}

// SetItems はHSETとPEXPIREATをMULTI/EXECでまとめて実行する。
func (r *RedisBrowserStorageRepo) SetItems(ctx context.Context, browserID string, items map[string]string, expiresAt time.Time) error {
	if len(items) == 0 {
		return nil
	}

	values := make(map[string]interface{}, len(items))
	for k, v := range items {
		values[k] = v
	}

	key := redisStorageKey(browserID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		pipe.PExpireAt(ctx, key, expiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set storage items: %w", err)
	}
	return nil
}

// GetItems はハッシュの全フィールドを取得する。キーが存在しない場合は空のmapを返す。
func (r *RedisBrowserStorageRepo) GetItems(ctx context.Context, browserID string) (map[string]string, error) {
	items, err := r.rdb.HGetAll(ctx, redisStorageKey(browserID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get storage items: %w", err)
	}
	return items, nil
}

// RemoveItems は1回のHDELで指定フィールドを削除する。
func (r *RedisBrowserStorageRepo) RemoveItems(ctx context.Context, browserID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.rdb.HDel(ctx, redisStorageKey(browserID), keys...).Err(); err != nil {
		return fmt.Errorf("failed to remove storage items: %w", err)
	}
	return nil
}

// compile-time interface check
var _ BrowserStorageRepository = (*RedisBrowserStorageRepo)(nil)
