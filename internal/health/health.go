// Package health 基于 heptiolabs/healthcheck 暴露存活与就绪探针。
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"earsip/backend/internal/storage"
)

// Pinger 可做连通性检查的依赖（如 Redis 客户端）
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker 健康检查器
type Checker struct {
	handler healthcheck.Handler
	store   storage.Store
	logger  *zap.Logger
}

// NewChecker 创建健康检查器并注册数据库检查
func NewChecker(store storage.Store, logger *zap.Logger) *Checker {
	c := &Checker{
		handler: healthcheck.NewHandler(),
		store:   store,
		logger:  logger,
	}

	c.handler.AddReadinessCheck("database", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return store.Ping(ctx)
	})

	// goroutine 数量异常通常意味着泄漏
	c.handler.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(200))

	return c
}

// AddPinger 注册额外的连通性检查（如 Redis）
func (c *Checker) AddPinger(name string, p Pinger) {
	c.handler.AddReadinessCheck(name, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return p.Ping(ctx)
	})
}

// LiveEndpoint 存活探针处理函数
func (c *Checker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	c.handler.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪探针处理函数
func (c *Checker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	c.handler.ReadyEndpoint(w, r)
}
