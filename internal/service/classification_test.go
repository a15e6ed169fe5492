package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"earsip/backend/internal/storage/memory"
)

// fakeCache 测试用的进程内缓存
type fakeCache struct {
	data map[string]string
	gets int
	hits int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.gets++
	v, ok := c.data[key]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func TestClassificationCRUD(t *testing.T) {
	ctx := context.Background()

	t.Run("新增并按code获取", func(t *testing.T) {
		svc := NewClassificationService(memory.NewStore(), zap.NewNop())

		created, err := svc.Create(ctx, CreateClassificationInput{
			Code: "STAFF",
			Name: "Staff",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)

		got, err := svc.GetByCode(ctx, "STAFF")
		require.NoError(t, err)
		assert.Equal(t, "Staff", got.Name)
	})

	t.Run("重复code被拒绝", func(t *testing.T) {
		svc := NewClassificationService(memory.NewStore(), zap.NewNop())

		_, err := svc.Create(ctx, CreateClassificationInput{Code: "STAFF", Name: "Staff"})
		require.NoError(t, err)

		_, err = svc.Create(ctx, CreateClassificationInput{Code: "STAFF", Name: "Duplicate"})
		assert.ErrorIs(t, err, ErrClassificationExists)
	})

	t.Run("更新与删除", func(t *testing.T) {
		svc := NewClassificationService(memory.NewStore(), zap.NewNop())

		created, err := svc.Create(ctx, CreateClassificationInput{Code: "INV", Name: "Invitation"})
		require.NoError(t, err)

		updated, err := svc.Update(ctx, created.ID, UpdateClassificationInput{
			Code: "INV",
			Name: "Undangan",
		})
		require.NoError(t, err)
		assert.Equal(t, "Undangan", updated.Name)

		require.NoError(t, svc.Delete(ctx, created.ID))
		_, err = svc.GetByCode(ctx, "INV")
		assert.ErrorIs(t, err, ErrClassificationNotFound)
	})

	t.Run("不存在的分类", func(t *testing.T) {
		svc := NewClassificationService(memory.NewStore(), zap.NewNop())

		_, err := svc.GetByCode(ctx, "MISSING")
		assert.ErrorIs(t, err, ErrClassificationNotFound)
		assert.ErrorIs(t, svc.Delete(ctx, "no-such-id"), ErrClassificationNotFound)
	})
}

func TestClassificationCache(t *testing.T) {
	ctx := context.Background()

	t.Run("列表命中缓存", func(t *testing.T) {
		svc := NewClassificationService(memory.NewStore(), zap.NewNop())
		cache := newFakeCache()
		svc.SetCache(cache)

		_, err := svc.Create(ctx, CreateClassificationInput{Code: "STAFF", Name: "Staff"})
		require.NoError(t, err)

		first, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, first, 1)
		assert.Equal(t, 0, cache.hits)

		second, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, 1, cache.hits)
	})

	t.Run("写操作使缓存失效", func(t *testing.T) {
		svc := NewClassificationService(memory.NewStore(), zap.NewNop())
		cache := newFakeCache()
		svc.SetCache(cache)

		_, err := svc.Create(ctx, CreateClassificationInput{Code: "A", Name: "A"})
		require.NoError(t, err)

		_, err = svc.List(ctx)
		require.NoError(t, err)

		_, err = svc.Create(ctx, CreateClassificationInput{Code: "B", Name: "B"})
		require.NoError(t, err)

		out, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, out, 2)
	})
}

func TestSettingService(t *testing.T) {
	ctx := context.Background()

	t.Run("写入并读取配置映射", func(t *testing.T) {
		svc := NewSettingService(memory.NewStore(), zap.NewNop())

		require.NoError(t, svc.Set(ctx, "office_name", "Dinas Arsip"))
		require.NoError(t, svc.Set(ctx, "office_phone", "021-555"))

		m, err := svc.Map(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Dinas Arsip", m["office_name"])
		assert.Equal(t, "021-555", m["office_phone"])
	})

	t.Run("覆盖已有配置并失效缓存", func(t *testing.T) {
		svc := NewSettingService(memory.NewStore(), zap.NewNop())
		cache := newFakeCache()
		svc.SetCache(cache)

		require.NoError(t, svc.Set(ctx, "office_name", "Lama"))
		_, err := svc.Map(ctx)
		require.NoError(t, err)

		require.NoError(t, svc.Set(ctx, "office_name", "Baru"))
		m, err := svc.Map(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Baru", m["office_name"])
	})
}
