package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"earsip/backend/internal/auth"
	"earsip/backend/internal/domain"
	"earsip/backend/internal/i18n"
	"earsip/backend/internal/middleware"
	"earsip/backend/internal/monitoring"
)

// AuthHandler 处理认证相关的 HTTP 请求
type AuthHandler struct {
	authService *auth.Service
	log         *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *auth.Service, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// Register 创建用户账号（仅管理员）
// @Summary 创建用户
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body registerRequest true "用户信息"
// @Success 201 {object} Response "创建成功"
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	locale := middleware.CurrentLocale(c)

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, i18n.T(locale, "validation.failed"))
		return
	}

	result, err := h.authService.Register(c.Request.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Role:     domain.UserRole(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			Conflict(c, ErrorMessage(locale, err))
		case errors.Is(err, auth.ErrInvalidEmail):
			UnprocessableEntity(c, ErrorMessage(locale, err))
		default:
			UnprocessableEntity(c, err.Error())
		}
		return
	}

	Created(c, "OK", result)
}

// Login 用户登录
// @Summary 用户登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录凭证"
// @Success 200 {object} Response "登录成功"
// @Failure 401 {object} Response "凭证无效"
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	locale := middleware.CurrentLocale(c)

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, i18n.T(locale, "validation.failed"))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		monitoring.LoginAttempts.WithLabelValues("failure").Inc()
		h.log.Warn("login failed",
			zap.String("email", req.Email),
			zap.String("ip", c.ClientIP()),
		)
		Unauthorized(c, ErrorMessage(locale, err))
		return
	}

	monitoring.LoginAttempts.WithLabelValues("success").Inc()
	Success(c, result)
}

// Refresh 刷新令牌
// @Summary 刷新令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body refreshRequest true "刷新令牌"
// @Success 200 {object} Response "新令牌对"
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	locale := middleware.CurrentLocale(c)

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, i18n.T(locale, "validation.failed"))
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		Unauthorized(c, ErrorMessage(locale, err))
		return
	}

	Success(c, result)
}

// Me 当前用户信息
// @Summary 当前用户
// @Tags 认证
// @Produce json
// @Success 200 {object} Response "用户信息"
// @Router /v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		Unauthorized(c, i18n.T(middleware.CurrentLocale(c), "auth.unauthorized"))
		return
	}
	Success(c, user)
}

// ChangePassword 修改当前用户密码
// @Summary 修改密码
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body changePasswordRequest true "新旧密码"
// @Success 200 {object} Response "修改成功"
// @Router /v1/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	locale := middleware.CurrentLocale(c)
	user := middleware.CurrentUser(c)
	if user == nil {
		Unauthorized(c, i18n.T(locale, "auth.unauthorized"))
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, i18n.T(locale, "validation.failed"))
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			UnprocessableEntity(c, ErrorMessage(locale, err))
			return
		}
		UnprocessableEntity(c, err.Error())
		return
	}

	SuccessWithMsg(c, "OK", nil)
}
