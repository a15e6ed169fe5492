package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"earsip/backend/internal/auth"
	"earsip/backend/internal/config"
	"earsip/backend/internal/domain"
	"earsip/backend/internal/logger"
	"earsip/backend/internal/storage"
	"earsip/backend/internal/storage/postgres"
)

// main 创建管理员账号，用于系统初始化。
func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: create-admin <email> <password> <username> [super|admin]")
		os.Exit(1)
	}

	email := os.Args[1]
	password := os.Args[2]
	username := os.Args[3]
	role := domain.RoleAdmin
	if len(os.Args) >= 5 && os.Args[4] == "super" {
		role = domain.RoleSuper
	}

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

	var store storage.Store
	store, err = postgres.NewStore(&cfg.Database, log)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	authService := auth.NewService(store, &cfg.JWT)
	result, err := authService.Register(ctx, auth.RegisterInput{
		Email:    email,
		Password: password,
		Username: username,
		Role:     role,
	})
	if err != nil {
		fmt.Printf("Failed to create admin: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Admin user created: %s (%s)\n", result.User.Email, result.User.Role)
}
