package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earsip/backend/internal/domain"
	"earsip/backend/internal/storage/memory"
)

func TestSeedReferenceData(t *testing.T) {
	ctx := context.Background()

	t.Run("写入STAFF分类与默认信头配置", func(t *testing.T) {
		store := memory.NewStore()

		require.NoError(t, seedClassifications(ctx, store))
		require.NoError(t, seedSettings(ctx, store))

		c, err := store.GetClassificationByCode(ctx, "STAFF")
		require.NoError(t, err)
		assert.Equal(t, "Staff", c.Name)

		settings, err := store.SettingsMap(ctx)
		require.NoError(t, err)
		assert.Equal(t, "eArsip", settings["app_name"])
		assert.Contains(t, settings, "office_name")
	})

	t.Run("重复执行是幂等的", func(t *testing.T) {
		store := memory.NewStore()

		require.NoError(t, seedClassifications(ctx, store))
		require.NoError(t, seedSettings(ctx, store))

		first, err := store.GetClassificationByCode(ctx, "STAFF")
		require.NoError(t, err)

		require.NoError(t, seedClassifications(ctx, store))
		require.NoError(t, seedSettings(ctx, store))

		again, err := store.GetClassificationByCode(ctx, "STAFF")
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)

		all, err := store.ListClassifications(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("已有配置值不被覆盖", func(t *testing.T) {
		store := memory.NewStore()

		require.NoError(t, store.UpsertSetting(ctx, &domain.Setting{Code: "app_name", Value: "Custom"}))
		require.NoError(t, seedSettings(ctx, store))

		settings, err := store.SettingsMap(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Custom", settings["app_name"])
	})
}
