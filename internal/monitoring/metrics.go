// Package monitoring 定义 Prometheus 监控指标。
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP 请求指标
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "earsip_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "earsip_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// 信件业务指标
var (
	LettersRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "earsip_letters_registered_total",
		Help: "Total number of incoming letters registered",
	})

	LettersUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "earsip_letters_updated_total",
		Help: "Total number of letter updates",
	})

	LettersDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "earsip_letters_deleted_total",
		Help: "Total number of letters deleted",
	})

	AttachmentsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "earsip_attachments_stored_total",
		Help: "Total number of attachments stored",
	})

	AttachmentsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "earsip_attachments_skipped_total",
		Help: "Total number of attachments skipped due to disallowed extension",
	})
)

// 认证与限流指标
var (
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "earsip_login_attempts_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"outcome"},
	)

	RateLimitBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "earsip_rate_limit_blocks_total",
		Help: "Total number of requests blocked by rate limiting",
	})
)

// Handler 返回 /metrics 的 HTTP 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
