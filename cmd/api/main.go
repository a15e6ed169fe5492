package main

// @title eArsip Backend API
// @version 1.0.0
// @description eArsip 来信归档后端 API 文档
// @contact.name API Support
// @contact.email support@example.com
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 使用格式：Bearer {token}

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"earsip/backend/internal/auth"
	"earsip/backend/internal/cache"
	"earsip/backend/internal/config"
	"earsip/backend/internal/health"
	"earsip/backend/internal/logger"
	"earsip/backend/internal/service"
	"earsip/backend/internal/storage"
	"earsip/backend/internal/storage/filesystem"
	"earsip/backend/internal/storage/memory"
	"earsip/backend/internal/storage/postgres"
	"earsip/backend/internal/storage/redis"
	httptransport "earsip/backend/internal/transport/http"
	"earsip/backend/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     cfg.Log.File,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting earsip server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("default_locale", cfg.App.DefaultLocale),
	)

	// 初始化存储层
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = postgres.NewStore(&cfg.Database, log)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		// 内存存储仅用于开发环境
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer store.Close()

	// 附件落盘存储
	blobs, err := filesystem.NewStore(cfg.Storage.Root, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize attachment storage: %v", err))
	}
	log.Info("attachment storage initialized", zap.String("root", cfg.Storage.Root))

	// 健康检查
	healthChecker := health.NewChecker(store, log)

	// 读缓存：启用 Redis 时走 Redis，否则用进程内缓存
	var readCache storage.Cache
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(&cfg.Redis, log)
		if err != nil {
			panic(fmt.Sprintf("failed to connect to Redis: %v", err))
		}
		defer redisClient.Close()
		readCache = redis.NewCache(redisClient, "earsip")
		healthChecker.AddPinger("redis", redisClient)
	} else {
		readCache = cache.NewLocalCache(10 * time.Minute)
	}

	// 初始化服务层
	authService := auth.NewService(store, &cfg.JWT)
	letterService := service.NewLetterService(store, blobs, log)
	classificationService := service.NewClassificationService(store, log)
	settingService := service.NewSettingService(store, log)
	classificationService.SetCache(readCache)
	settingService.SetCache(readCache)

	// WebSocket Hub 向在线用户推送信件事件
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, log)
	letterService.SetNotifier(wsHub)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Config:          cfg,
		Auth:            authService,
		Letters:         letterService,
		Classifications: classificationService,
		Settings:        settingService,
		Health:          healthChecker,
		Hub:             wsHub,
		Logger:          log,
	})

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 优雅关闭
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
