// Package cache 提供进程内的读缓存，在未启用 Redis 时作为替代。
package cache

import (
	"context"
	"sync"
	"time"
)

// LocalCache 本地内存缓存
//
// 特点：
// - 使用 sync.Map 实现无锁读取
// - 支持 TTL 过期
// - 自动清理过期条目
type LocalCache struct {
	data sync.Map
	ttl  time.Duration
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// NewLocalCache 创建本地缓存
//
// 参数:
//   - ttl: 默认过期时间（Set 传 0 时使用）
func NewLocalCache(ttl time.Duration) *LocalCache {
	c := &LocalCache{ttl: ttl}

	// 启动定期清理
	go c.cleanupLoop()

	return c
}

// Get 获取缓存值
func (c *LocalCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, ok := c.data.Load(key)
	if !ok {
		return "", false, nil
	}

	entry := val.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.data.Delete(key)
		return "", false, nil
	}

	return entry.value, true, nil
}

// Set 写入缓存值
func (c *LocalCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.data.Store(key, &cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Del 删除缓存键
func (c *LocalCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		c.data.Delete(key)
	}
	return nil
}

// cleanupLoop 定期清理过期条目
func (c *LocalCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.data.Range(func(key, val interface{}) bool {
			if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
				c.data.Delete(key)
			}
			return true
		})
	}
}
