package httptransport

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"earsip/backend/internal/auth"
	"earsip/backend/internal/config"
	"earsip/backend/internal/health"
	"earsip/backend/internal/middleware"
	"earsip/backend/internal/monitoring"
	"earsip/backend/internal/service"
	"earsip/backend/internal/websocket"
)

// RouterDeps 路由依赖集合
type RouterDeps struct {
	Config          *config.Config
	Auth            *auth.Service
	Letters         *service.LetterService
	Classifications *service.ClassificationService
	Settings        *service.SettingService
	Health          *health.Checker
	Hub             *websocket.Hub
	Logger          *zap.Logger
}

// NewRouter 组装全部中间件和路由
func NewRouter(deps RouterDeps) *gin.Engine {
	if !deps.Config.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RequestSizeLimit(requestBodyLimit(deps.Config)))
	r.Use(middleware.Metrics())
	r.Use(middleware.Locale(deps.Config.App.DefaultLocale))
	r.Use(corsMiddleware(deps.Config.CORS))

	// 探针与指标
	r.GET("/health", gin.WrapF(deps.Health.LiveEndpoint))
	r.GET("/health/live", gin.WrapF(deps.Health.LiveEndpoint))
	r.GET("/health/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	r.GET("/metrics", gin.WrapH(monitoring.Handler()))

	jwtAuth := middleware.NewJWTAuth(deps.Auth, deps.Logger)
	authHandler := NewAuthHandler(deps.Auth, deps.Logger)
	letterHandler := NewLetterHandler(deps.Letters, deps.Classifications, deps.Config.Upload.MaxFiles, deps.Logger)
	classificationHandler := NewClassificationHandler(deps.Classifications, deps.Logger)
	settingHandler := NewSettingHandler(deps.Settings, deps.Logger)

	// 登录接口做单 IP 限速，防止撞库
	loginLimiter := middleware.NewRateLimiter(rate.Every(time.Second), 5)

	v1 := r.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", loginLimiter.Limit(), authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/register", jwtAuth.RequireAuth(), middleware.RequireAdmin(), authHandler.Register)
			authGroup.GET("/me", jwtAuth.RequireAuth(), authHandler.Me)
			authGroup.PUT("/password", jwtAuth.RequireAuth(), authHandler.ChangePassword)
		}

		letters := v1.Group("/letters", jwtAuth.RequireAuth())
		{
			letters.GET("/incoming", letterHandler.Agenda)
			letters.GET("/incoming/agenda", letterHandler.Agenda)
			letters.GET("/incoming/print", letterHandler.Print)
			letters.GET("/incoming/create", letterHandler.CreateForm)
			letters.POST("/incoming", letterHandler.Create)
			letters.GET("/incoming/:id", letterHandler.Get)
			letters.GET("/incoming/:id/edit", letterHandler.EditForm)
			letters.PUT("/incoming/:id", letterHandler.Update)
			letters.PATCH("/incoming/:id", letterHandler.Update)
			letters.DELETE("/incoming/:id", letterHandler.Delete)
			letters.GET("/attachments/:id", letterHandler.DownloadAttachment)
		}

		classifications := v1.Group("/classifications", jwtAuth.RequireAuth())
		{
			classifications.GET("", classificationHandler.List)
			classifications.POST("", middleware.RequireAdmin(), classificationHandler.Create)
			classifications.PUT("/:id", middleware.RequireAdmin(), classificationHandler.Update)
			classifications.DELETE("/:id", middleware.RequireAdmin(), classificationHandler.Delete)
		}

		settings := v1.Group("/settings", jwtAuth.RequireAuth())
		{
			settings.GET("", settingHandler.Map)
			settings.PUT("/:code", middleware.RequireAdmin(), settingHandler.Set)
		}

		if deps.Hub != nil {
			v1.GET("/ws", jwtAuth.RequireAuth(), deps.Hub.HandleConnection())
		}
	}

	return r
}

// requestBodyLimit 请求体上限：全部附件加上表单字段的余量
func requestBodyLimit(cfg *config.Config) int64 {
	return cfg.Upload.MaxFileSize*int64(cfg.Upload.MaxFiles) + 1<<20
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept-Language"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	allowAll := false
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
	}
	if allowAll {
		// 通配来源时不能开启凭证
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}

	return cors.New(corsConfig)
}
