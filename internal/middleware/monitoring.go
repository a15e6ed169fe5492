package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"earsip/backend/internal/monitoring"
)

// Metrics 记录 HTTP 请求指标。
// endpoint 使用路由模板而非原始路径，避免高基数标签。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		method := c.Request.Method

		monitoring.HTTPRequestsTotal.
			WithLabelValues(method, endpoint, strconv.Itoa(c.Writer.Status())).
			Inc()
		monitoring.HTTPRequestDuration.
			WithLabelValues(method, endpoint).
			Observe(time.Since(start).Seconds())
	}
}
