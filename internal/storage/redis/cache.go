package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Cache 实现 storage.Cache 接口
type Cache struct {
	client *Client
	prefix string
}

// NewCache 基于已建立的客户端创建缓存，prefix 用于隔离键空间
func NewCache(client *Client, prefix string) *Cache {
	if prefix == "" {
		prefix = "earsip"
	}
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) key(k string) string {
	return c.prefix + ":" + k
}

// Get 读取缓存，第二个返回值表示是否命中
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.rdb.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// Set 写入缓存并设置过期时间
func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.client.rdb.Set(ctx, c.key(key), value, ttl).Err()
}

// Del 删除缓存键
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.key(k)
	}
	return c.client.rdb.Del(ctx, prefixed...).Err()
}
