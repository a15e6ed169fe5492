package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"earsip/backend/internal/i18n"
	"earsip/backend/internal/middleware"
	"earsip/backend/internal/service"
)

// SettingHandler 处理信头/打印配置的 HTTP 请求
type SettingHandler struct {
	settings *service.SettingService
	log      *zap.Logger
}

// NewSettingHandler 创建配置处理器
func NewSettingHandler(settings *service.SettingService, log *zap.Logger) *SettingHandler {
	return &SettingHandler{
		settings: settings,
		log:      log,
	}
}

type settingRequest struct {
	Value string `json:"value" binding:"required"`
}

// Map 配置映射
// @Summary 配置映射
// @Tags 配置
// @Produce json
// @Success 200 {object} Response "code -> value 映射"
// @Router /v1/settings [get]
func (h *SettingHandler) Map(c *gin.Context) {
	out, err := h.settings.Map(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load settings", zap.Error(err))
		InternalError(c, i18n.T(middleware.CurrentLocale(c), "error.internal"))
		return
	}
	Success(c, out)
}

// Set 写入配置项（仅管理员）
// @Summary 写入配置项
// @Tags 配置
// @Accept json
// @Produce json
// @Param code path string true "配置编码"
// @Param request body settingRequest true "配置值"
// @Success 200 {object} Response "写入成功"
// @Router /v1/settings/{code} [put]
func (h *SettingHandler) Set(c *gin.Context) {
	locale := middleware.CurrentLocale(c)

	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, i18n.T(locale, "validation.failed"))
		return
	}

	if err := h.settings.Set(c.Request.Context(), c.Param("code"), req.Value); err != nil {
		h.log.Error("failed to save setting", zap.Error(err))
		InternalError(c, i18n.T(locale, "error.internal"))
		return
	}

	SuccessWithMsg(c, "OK", nil)
}
