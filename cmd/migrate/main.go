package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"earsip/backend/internal/config"
	"earsip/backend/internal/domain"
	"earsip/backend/internal/logger"
	"earsip/backend/internal/storage"
	"earsip/backend/internal/storage/postgres"
)

// main 执行数据库迁移并写入参照数据：
// STAFF 分类与默认信头配置。重复执行是幂等的。
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		fmt.Println("错误: 需要设置 EARSIP_DATABASE_TYPE 和 EARSIP_DATABASE_DSN")
		os.Exit(1)
	}

	log := logger.NewDevelopmentLogger()

	store, err := postgres.NewStore(&cfg.Database, log)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// 建表必须先于种子数据
	if err := store.AutoMigrate(); err != nil {
		fmt.Printf("Failed to migrate schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Schema migrated")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := seedClassifications(ctx, store); err != nil {
		fmt.Printf("Failed to seed classifications: %v\n", err)
		os.Exit(1)
	}
	if err := seedSettings(ctx, store); err != nil {
		fmt.Printf("Failed to seed settings: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully")
}

// seedClassifications 写入 STAFF 分类，已存在时跳过
func seedClassifications(ctx context.Context, store storage.ClassificationRepository) error {
	if _, err := store.GetClassificationByCode(ctx, "STAFF"); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrClassificationNotFound) {
		return err
	}

	now := time.Now()
	return store.CreateClassification(ctx, &domain.Classification{
		ID:          uuid.NewString(),
		Code:        "STAFF",
		Name:        "Staff",
		Description: "Internal staff correspondence",
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// seedSettings 写入默认信头配置，跳过已存在的 code
func seedSettings(ctx context.Context, store storage.SettingRepository) error {
	existing, err := store.SettingsMap(ctx)
	if err != nil {
		return err
	}
	for _, s := range domain.DefaultSettings() {
		if _, ok := existing[s.Code]; ok {
			continue
		}
		setting := s
		if err := store.UpsertSetting(ctx, &setting); err != nil {
			return err
		}
	}
	return nil
}
