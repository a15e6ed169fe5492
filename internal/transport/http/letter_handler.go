package httptransport

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"earsip/backend/internal/domain"
	"earsip/backend/internal/i18n"
	"earsip/backend/internal/middleware"
	"earsip/backend/internal/service"
)

const dateLayout = "2006-01-02"

// LetterHandler 处理来文登记相关的 HTTP 请求
type LetterHandler struct {
	letters         *service.LetterService
	classifications *service.ClassificationService
	maxFiles        int
	log             *zap.Logger
}

// NewLetterHandler 创建来文处理器
func NewLetterHandler(letters *service.LetterService, classifications *service.ClassificationService, maxFiles int, log *zap.Logger) *LetterHandler {
	return &LetterHandler{
		letters:         letters,
		classifications: classifications,
		maxFiles:        maxFiles,
		log:             log,
	}
}

// Agenda 来文列表（分页）
// @Summary 来文议程
// @Description 分页列出来文，staff 只能看到自己登记的信件
// @Tags 来文
// @Produce json
// @Param search query string false "关键词"
// @Param since query string false "收文日期下限 YYYY-MM-DD"
// @Param until query string false "收文日期上限 YYYY-MM-DD"
// @Param classification query string false "分类代码"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} Response "来文分页"
// @Router /v1/letters/incoming [get]
func (h *LetterHandler) Agenda(c *gin.Context) {
	locale := middleware.CurrentLocale(c)
	user := middleware.CurrentUser(c)

	criteria, err := parseCriteria(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	page, err := h.letters.Agenda(c.Request.Context(), user, criteria)
	if err != nil {
		h.log.Error("failed to list letters", zap.Error(err))
		InternalError(c, i18n.T(locale, "error.internal"))
		return
	}

	Success(c, page)
}

// Print 来文打印视图（不分页，带信头配置）
// @Summary 来文议程打印数据
// @Tags 来文
// @Produce json
// @Success 200 {object} Response "打印数据"
// @Router /v1/letters/incoming/print [get]
func (h *LetterHandler) Print(c *gin.Context) {
	locale := middleware.CurrentLocale(c)
	user := middleware.CurrentUser(c)

	criteria, err := parseCriteria(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	data, err := h.letters.Print(c.Request.Context(), user, criteria)
	if err != nil {
		h.log.Error("failed to build print data", zap.Error(err))
		InternalError(c, i18n.T(locale, "error.internal"))
		return
	}

	Success(c, gin.H{
		"title":    i18n.PrintTitle(locale),
		"letters":  data.Letters,
		"settings": data.Settings,
		"since":    data.Since,
		"until":    data.Until,
	})
}

// CreateForm 登记表单所需的数据（分类列表）
// @Summary 来文登记表单数据
// @Tags 来文
// @Produce json
// @Success 200 {object} Response "分类列表"
// @Router /v1/letters/incoming/create [get]
func (h *LetterHandler) CreateForm(c *gin.Context) {
	classifications, err := h.classifications.List(c.Request.Context())
	if err != nil {
		h.log.Error("failed to list classifications", zap.Error(err))
		InternalError(c, i18n.T(middleware.CurrentLocale(c), "error.internal"))
		return
	}

	Success(c, gin.H{"classifications": classifications})
}

// EditForm 编辑表单所需的数据（信件详情加分类列表）
// @Summary 来文编辑表单数据
// @Tags 来文
// @Produce json
// @Param id path string true "信件ID"
// @Success 200 {object} Response "信件与分类列表"
// @Router /v1/letters/incoming/{id}/edit [get]
func (h *LetterHandler) EditForm(c *gin.Context) {
	locale := middleware.CurrentLocale(c)
	user := middleware.CurrentUser(c)

	letter, err := h.letters.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.respondLetterError(c, locale, err, "error.internal")
		return
	}

	classifications, err := h.classifications.List(c.Request.Context())
	if err != nil {
		h.log.Error("failed to list classifications", zap.Error(err))
		InternalError(c, i18n.T(locale, "error.internal"))
		return
	}

	Success(c, gin.H{"letter": letter, "classifications": classifications})
}

// Create 登记新的来文（multipart 表单，附件可选）
// @Summary 登记来文
// @Tags 来文
// @Accept mpfd
// @Produce json
// @Success 201 {object} Response "登记成功"
// @Failure 422 {object} Response "类型或字段无效"
// @Router /v1/letters/incoming [post]
func (h *LetterHandler) Create(c *gin.Context) {
	locale := middleware.CurrentLocale(c)
	user := middleware.CurrentUser(c)

	fields, uploads, err := h.parseLetterForm(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	defer closeUploads(uploads)

	letter, err := h.letters.Create(c.Request.Context(), user, service.CreateLetterInput{
		Type:               domain.LetterType(c.PostForm("type")),
		ReferenceNumber:    fields.referenceNumber,
		AgendaNumber:       fields.agendaNumber,
		Sender:             fields.sender,
		Regarding:          fields.regarding,
		LetterDate:         fields.letterDate,
		ReceivedDate:       fields.receivedDate,
		ClassificationCode: fields.classificationCode,
		Uploads:            uploads,
	})
	if err != nil {
		h.respondLetterError(c, locale, err, "letter.create_failed")
		return
	}

	Created(c, i18n.T(locale, "letter.created"), letter)
}

// Get 来文详情
// @Summary 来文详情
// @Tags 来文
// @Produce json
// @Param id path string true "信件ID"
// @Success 200 {object} Response "来文详情"
// @Failure 403 {object} Response "无权访问"
// @Failure 404 {object} Response "不存在"
// @Router /v1/letters/incoming/{id} [get]
func (h *LetterHandler) Get(c *gin.Context) {
	locale := middleware.CurrentLocale(c)
	user := middleware.CurrentUser(c)

	letter, err := h.letters.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.respondLetterError(c, locale, err, "error.internal")
		return
	}

	Success(c, letter)
}

// Update 更新来文（multipart 表单，可追加附件）
// @Summary 更新来文
// @Tags 来文
// @Accept mpfd
// @Produce json
// @Param id path string true "信件ID"
// @Success 200 {object} Response "更新成功"
// @Router /v1/letters/incoming/{id} [put]
func (h *LetterHandler) Update(c *gin.Context) {
	locale := middleware.CurrentLocale(c)
	user := middleware.CurrentUser(c)

	fields, uploads, err := h.parseLetterForm(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	defer closeUploads(uploads)

	letter, err := h.letters.Update(c.Request.Context(), user, c.Param("id"), service.UpdateLetterInput{
		ReferenceNumber:    fields.referenceNumber,
		AgendaNumber:       fields.agendaNumber,
		Sender:             fields.sender,
		Regarding:          fields.regarding,
		LetterDate:         fields.letterDate,
		ReceivedDate:       fields.receivedDate,
		ClassificationCode: fields.classificationCode,
		Uploads:            uploads,
	})
	if err != nil {
		h.respondLetterError(c, locale, err, "letter.update_failed")
		return
	}

	SuccessWithMsg(c, i18n.T(locale, "letter.updated"), letter)
}

// Delete 删除来文
// @Summary 删除来文
// @Tags 来文
// @Produce json
// @Param id path string true "信件ID"
// @Success 200 {object} Response "删除成功"
// @Router /v1/letters/incoming/{id} [delete]
func (h *LetterHandler) Delete(c *gin.Context) {
	locale := middleware.CurrentLocale(c)
	user := middleware.CurrentUser(c)

	if err := h.letters.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		h.respondLetterError(c, locale, err, "letter.delete_failed")
		return
	}

	SuccessWithMsg(c, i18n.T(locale, "letter.deleted"), nil)
}

// DownloadAttachment 下载附件内容
// @Summary 下载附件
// @Tags 来文
// @Produce octet-stream
// @Param id path string true "附件ID"
// @Router /v1/letters/attachments/{id} [get]
func (h *LetterHandler) DownloadAttachment(c *gin.Context) {
	locale := middleware.CurrentLocale(c)
	user := middleware.CurrentUser(c)

	at, rc, err := h.letters.OpenAttachment(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.respondLetterError(c, locale, err, "error.internal")
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", at.Filename))
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", rc, nil)
}

// letterFields 表单中的信件字段
type letterFields struct {
	referenceNumber    string
	agendaNumber       string
	sender             string
	regarding          string
	letterDate         time.Time
	receivedDate       time.Time
	classificationCode string
}

// parseLetterForm 解析 multipart 表单的字段与附件
func (h *LetterHandler) parseLetterForm(c *gin.Context) (*letterFields, []service.Upload, error) {
	letterDate, err := time.Parse(dateLayout, c.PostForm("letter_date"))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid letter_date: expected %s", dateLayout)
	}
	receivedDate, err := time.Parse(dateLayout, c.PostForm("received_date"))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid received_date: expected %s", dateLayout)
	}

	fields := &letterFields{
		referenceNumber:    c.PostForm("reference_number"),
		agendaNumber:       c.PostForm("agenda_number"),
		sender:             c.PostForm("sender"),
		regarding:          c.PostForm("regarding"),
		letterDate:         letterDate,
		receivedDate:       receivedDate,
		classificationCode: c.PostForm("classification_code"),
	}

	uploads, err := h.parseUploads(c)
	if err != nil {
		return nil, nil, err
	}
	return fields, uploads, nil
}

// parseUploads 打开表单中的附件文件。
// 调用方处理完毕后必须通过 closeUploads 关闭句柄，
// 大表单落盘时 multipart 文件是真实的文件描述符。
func (h *LetterHandler) parseUploads(c *gin.Context) ([]service.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	files := form.File["attachments"]
	if len(files) > h.maxFiles {
		return nil, fmt.Errorf("too many attachments: limit is %d", h.maxFiles)
	}

	uploads := make([]service.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			closeUploads(uploads)
			return nil, fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
		}
		uploads = append(uploads, service.Upload{
			Filename: fh.Filename,
			Content:  f,
		})
	}
	return uploads, nil
}

// closeUploads 关闭 parseUploads 打开的附件句柄
func closeUploads(uploads []service.Upload) {
	for _, up := range uploads {
		if closer, ok := up.Content.(io.Closer); ok {
			closer.Close()
		}
	}
}

// parseCriteria 解析列表查询参数
func parseCriteria(c *gin.Context) (domain.LetterCriteria, error) {
	criteria := domain.LetterCriteria{
		Search:         c.Query("search"),
		Classification: c.Query("classification"),
	}

	if v := c.Query("since"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return criteria, fmt.Errorf("invalid since: expected %s", dateLayout)
		}
		criteria.Since = &t
	}
	if v := c.Query("until"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return criteria, fmt.Errorf("invalid until: expected %s", dateLayout)
		}
		criteria.Until = &t
	}
	if v := c.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return criteria, errors.New("invalid page")
		}
		criteria.Page = page
	}
	if v := c.Query("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 || size > 100 {
			return criteria, errors.New("invalid page_size")
		}
		criteria.PageSize = size
	}

	return criteria, nil
}

// respondLetterError 将业务错误映射为 HTTP 响应
func (h *LetterHandler) respondLetterError(c *gin.Context, locale string, err error, fallbackKey string) {
	switch {
	case errors.Is(err, service.ErrLetterNotFound):
		NotFound(c, ErrorMessage(locale, service.ErrLetterNotFound))
	case errors.Is(err, service.ErrLetterAccessDenied):
		Forbidden(c, ErrorMessage(locale, service.ErrLetterAccessDenied))
	case errors.Is(err, service.ErrInvalidLetterType):
		UnprocessableEntity(c, ErrorMessage(locale, service.ErrInvalidLetterType))
	case errors.Is(err, service.ErrClassificationInvalid):
		UnprocessableEntity(c, ErrorMessage(locale, service.ErrClassificationInvalid))
	default:
		h.log.Error("letter operation failed", zap.Error(err))
		InternalError(c, i18n.T(locale, fallbackKey))
	}
}
