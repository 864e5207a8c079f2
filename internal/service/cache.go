package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Cache 读缓存抽象，由 pkg/redis.Client 实现
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// readCache 缓存失败只记日志，不影响业务结果
type readCache struct {
	backend Cache
	ttl     time.Duration
	logger  *zap.Logger
}

func newReadCache(backend Cache, ttl time.Duration, logger *zap.Logger) *readCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &readCache{backend: backend, ttl: ttl, logger: logger}
}

func countsKey(groupID string) string { return "group:" + groupID + ":counts" }
func teamsKey(groupID string) string  { return "group:" + groupID + ":teams" }

// groupListKey 聚会列表含各场次人数，任一出勤变化都会使其失效
const groupListKey = "groups:summary"

func (c *readCache) get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.backend == nil {
		return false
	}
	hit, err := c.backend.GetJSON(ctx, key, dest)
	if err != nil {
		c.logger.Warn("读取缓存失败", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (c *readCache) set(ctx context.Context, key string, value interface{}) {
	if c == nil || c.backend == nil {
		return
	}
	if err := c.backend.SetJSON(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("写入缓存失败", zap.String("key", key), zap.Error(err))
	}
}

func (c *readCache) invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.backend == nil {
		return
	}
	if err := c.backend.Delete(ctx, keys...); err != nil {
		c.logger.Warn("删除缓存失败", zap.Strings("keys", keys), zap.Error(err))
	}
}
