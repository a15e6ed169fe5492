package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"earsip/backend/internal/i18n"
	"earsip/backend/internal/middleware"
	"earsip/backend/internal/service"
)

// ClassificationHandler 处理信件分类的 HTTP 请求
type ClassificationHandler struct {
	classifications *service.ClassificationService
	log             *zap.Logger
}

// NewClassificationHandler 创建分类处理器
func NewClassificationHandler(classifications *service.ClassificationService, log *zap.Logger) *ClassificationHandler {
	return &ClassificationHandler{
		classifications: classifications,
		log:             log,
	}
}

type classificationRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// List 分类列表
// @Summary 分类列表
// @Tags 分类
// @Produce json
// @Success 200 {object} Response "分类列表"
// @Router /v1/classifications [get]
func (h *ClassificationHandler) List(c *gin.Context) {
	items, err := h.classifications.List(c.Request.Context())
	if err != nil {
		h.log.Error("failed to list classifications", zap.Error(err))
		InternalError(c, i18n.T(middleware.CurrentLocale(c), "error.internal"))
		return
	}
	Success(c, items)
}

// Create 新建分类（仅管理员）
// @Summary 新建分类
// @Tags 分类
// @Accept json
// @Produce json
// @Param request body classificationRequest true "分类信息"
// @Success 201 {object} Response "创建成功"
// @Router /v1/classifications [post]
func (h *ClassificationHandler) Create(c *gin.Context) {
	locale := middleware.CurrentLocale(c)

	var req classificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, i18n.T(locale, "validation.failed"))
		return
	}

	created, err := h.classifications.Create(c.Request.Context(), service.CreateClassificationInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, locale, err)
		return
	}

	Created(c, "OK", created)
}

// Update 更新分类（仅管理员）
// @Summary 更新分类
// @Tags 分类
// @Accept json
// @Produce json
// @Param id path string true "分类 ID"
// @Param request body classificationRequest true "分类信息"
// @Success 200 {object} Response "更新成功"
// @Router /v1/classifications/{id} [put]
func (h *ClassificationHandler) Update(c *gin.Context) {
	locale := middleware.CurrentLocale(c)

	var req classificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, i18n.T(locale, "validation.failed"))
		return
	}

	updated, err := h.classifications.Update(c.Request.Context(), c.Param("id"), service.UpdateClassificationInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, locale, err)
		return
	}

	Success(c, updated)
}

// Delete 删除分类（仅管理员）
// @Summary 删除分类
// @Tags 分类
// @Produce json
// @Param id path string true "分类 ID"
// @Success 200 {object} Response "删除成功"
// @Router /v1/classifications/{id} [delete]
func (h *ClassificationHandler) Delete(c *gin.Context) {
	locale := middleware.CurrentLocale(c)

	if err := h.classifications.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, locale, err)
		return
	}

	SuccessWithMsg(c, "OK", nil)
}

func (h *ClassificationHandler) respondError(c *gin.Context, locale string, err error) {
	switch {
	case errors.Is(err, service.ErrClassificationNotFound):
		NotFound(c, ErrorMessage(locale, err))
	case errors.Is(err, service.ErrClassificationExists):
		Conflict(c, ErrorMessage(locale, err))
	default:
		h.log.Error("classification request failed", zap.Error(err))
		InternalError(c, i18n.T(locale, "error.internal"))
	}
}
