// Package cache 提供带过期时间的键值存储，用于缩短读路径
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 表示键不存在或已过期
var ErrMiss = errors.New("cache: miss")

// Cache 删除不存在的键视为成功；Incr 对不存在的键从 0 开始计数
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
}
