package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"earsip/backend/internal/domain"
	"earsip/backend/internal/monitoring"
	"earsip/backend/internal/storage"
)

var (
	// ErrLetterNotFound 信件不存在
	ErrLetterNotFound = errors.New("letter not found")
	// ErrLetterAccessDenied 当前用户无权访问该信件
	ErrLetterAccessDenied = errors.New("letter access denied")
	// ErrInvalidLetterType 信件类型必须是来文
	ErrInvalidLetterType = errors.New("letter type must be incoming")
	// ErrClassificationInvalid 分类代码不存在
	ErrClassificationInvalid = errors.New("classification code does not exist")
)

// Notifier 信件生命周期事件的接收方（如 WebSocket 推送）
type Notifier interface {
	LetterEvent(event string, letter *domain.Letter)
}

// LetterService 封装信件登记的业务逻辑。
type LetterService struct {
	store    storage.Store
	blobs    storage.BlobStore
	log      *zap.Logger
	notifier Notifier         // 可选
	now      func() time.Time // 可注入，用于测试固定时间戳
}

// NewLetterService 创建信件业务服务。
func NewLetterService(store storage.Store, blobs storage.BlobStore, log *zap.Logger) *LetterService {
	return &LetterService{
		store: store,
		blobs: blobs,
		log:   log,
		now:   time.Now,
	}
}

// SetNotifier 设置事件推送接收方
func (s *LetterService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetClock 注入时间源，仅测试使用
func (s *LetterService) SetClock(now func() time.Time) {
	s.now = now
}

// Upload 一个待保存的附件
type Upload struct {
	Filename string
	Content  io.Reader
}

// CreateLetterInput 定义登记来文的输入。
type CreateLetterInput struct {
	Type               domain.LetterType
	ReferenceNumber    string
	AgendaNumber       string
	Sender             string
	Regarding          string
	LetterDate         time.Time
	ReceivedDate       time.Time
	ClassificationCode string
	Uploads            []Upload
}

// UpdateLetterInput 定义更新来文的输入。
type UpdateLetterInput struct {
	ReferenceNumber    string
	AgendaNumber       string
	Sender             string
	Regarding          string
	LetterDate         time.Time
	ReceivedDate       time.Time
	ClassificationCode string
	Uploads            []Upload
}

// Create 登记一封新的来文。
// 只有 incoming 类型可以通过此入口登记；
// 扩展名不在允许列表内的附件会被静默跳过。
func (s *LetterService) Create(ctx context.Context, user *domain.User, input CreateLetterInput) (*domain.Letter, error) {
	if input.Type != domain.LetterIncoming {
		return nil, ErrInvalidLetterType
	}
	if err := s.checkClassification(ctx, input.ClassificationCode); err != nil {
		return nil, err
	}

	now := s.now()
	letter := &domain.Letter{
		ID:                 uuid.NewString(),
		Type:               domain.LetterIncoming,
		ReferenceNumber:    input.ReferenceNumber,
		AgendaNumber:       input.AgendaNumber,
		Sender:             input.Sender,
		Regarding:          input.Regarding,
		LetterDate:         input.LetterDate,
		ReceivedDate:       input.ReceivedDate,
		ClassificationCode: input.ClassificationCode,
		UserID:             user.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	attachments, err := s.storeUploads(ctx, letter.ID, user.ID, input.Uploads)
	if err != nil {
		return nil, err
	}
	letter.Attachments = attachments

	if err := s.store.CreateLetter(ctx, letter); err != nil {
		// 信件没有落库，已写入的附件文件一并回收
		s.removeBlobs(ctx, attachments)
		return nil, fmt.Errorf("failed to create letter: %w", err)
	}

	monitoring.LettersRegistered.Inc()
	s.log.Info("letter registered",
		zap.String("letter_id", letter.ID),
		zap.String("user_id", user.ID),
		zap.Int("attachments", len(attachments)),
	)
	s.notify("letter.created", letter)

	return letter, nil
}

// Get 获取单封信件详情，staff 只能查看自己登记的信件。
func (s *LetterService) Get(ctx context.Context, user *domain.User, id string) (*domain.Letter, error) {
	letter, err := s.store.GetLetter(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrLetterNotFound) {
			return nil, ErrLetterNotFound
		}
		return nil, err
	}
	if !user.CanAccessLetter(letter) {
		return nil, ErrLetterAccessDenied
	}
	return letter, nil
}

// Agenda 按条件分页列出来文。
// staff 角色的查询范围被强制收窄到自己登记的信件。
func (s *LetterService) Agenda(ctx context.Context, user *domain.User, criteria domain.LetterCriteria) (*domain.LetterPage, error) {
	criteria.Type = domain.LetterIncoming
	if user.Role == domain.RoleStaff {
		criteria.UserID = user.ID
	}
	return s.store.ListLetters(ctx, criteria)
}

// PrintData 打印视图所需的数据
type PrintData struct {
	Letters  []domain.Letter   `json:"letters"`
	Settings map[string]string `json:"settings"`
	Since    *time.Time        `json:"since,omitempty"`
	Until    *time.Time        `json:"until,omitempty"`
}

// Print 返回打印视图数据：不分页的信件列表加信头配置。
func (s *LetterService) Print(ctx context.Context, user *domain.User, criteria domain.LetterCriteria) (*PrintData, error) {
	criteria.Unpaginated = true
	page, err := s.Agenda(ctx, user, criteria)
	if err != nil {
		return nil, err
	}

	settings, err := s.store.SettingsMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	return &PrintData{
		Letters:  page.Items,
		Settings: settings,
		Since:    criteria.Since,
		Until:    criteria.Until,
	}, nil
}

// Update 更新信件字段并追加新附件。
// 更新入口不校验信件类型（类型在登记时已固定）。
func (s *LetterService) Update(ctx context.Context, user *domain.User, id string, input UpdateLetterInput) (*domain.Letter, error) {
	letter, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkClassification(ctx, input.ClassificationCode); err != nil {
		return nil, err
	}

	now := s.now()
	letter.ReferenceNumber = input.ReferenceNumber
	letter.AgendaNumber = input.AgendaNumber
	letter.Sender = input.Sender
	letter.Regarding = input.Regarding
	letter.LetterDate = input.LetterDate
	letter.ReceivedDate = input.ReceivedDate
	letter.ClassificationCode = input.ClassificationCode
	letter.UpdatedAt = now

	if err := s.store.UpdateLetter(ctx, letter); err != nil {
		if errors.Is(err, storage.ErrLetterNotFound) {
			return nil, ErrLetterNotFound
		}
		return nil, fmt.Errorf("failed to update letter: %w", err)
	}

	attachments, err := s.storeUploads(ctx, letter.ID, user.ID, input.Uploads)
	if err != nil {
		return nil, err
	}
	for _, at := range attachments {
		if err := s.store.CreateAttachment(ctx, at); err != nil {
			return nil, fmt.Errorf("failed to save attachment: %w", err)
		}
	}

	updated, err := s.store.GetLetter(ctx, id)
	if err != nil {
		return nil, err
	}

	monitoring.LettersUpdated.Inc()
	s.log.Info("letter updated",
		zap.String("letter_id", letter.ID),
		zap.String("user_id", user.ID),
	)
	s.notify("letter.updated", updated)

	return updated, nil
}

// Delete 删除信件及其附件行。
// 附件的文件内容保留在磁盘上，便于事后审计。
func (s *LetterService) Delete(ctx context.Context, user *domain.User, id string) error {
	letter, err := s.Get(ctx, user, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteLetter(ctx, id); err != nil {
		if errors.Is(err, storage.ErrLetterNotFound) {
			return ErrLetterNotFound
		}
		return fmt.Errorf("failed to delete letter: %w", err)
	}

	monitoring.LettersDeleted.Inc()
	s.log.Info("letter deleted",
		zap.String("letter_id", id),
		zap.String("user_id", user.ID),
	)
	s.notify("letter.deleted", letter)

	return nil
}

// OpenAttachment 打开附件内容，staff 只能下载自己信件的附件。
func (s *LetterService) OpenAttachment(ctx context.Context, user *domain.User, attachmentID string) (*domain.Attachment, io.ReadCloser, error) {
	at, err := s.store.GetAttachment(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, storage.ErrAttachmentNotFound) {
			return nil, nil, ErrLetterNotFound
		}
		return nil, nil, err
	}

	if _, err := s.Get(ctx, user, at.LetterID); err != nil {
		return nil, nil, err
	}

	rc, err := s.blobs.OpenBlob(ctx, at.Filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return at, rc, nil
}

// storeUploads 过滤并保存上传的附件。
// 扩展名按字面值匹配允许列表，不匹配的文件跳过且不报错。
// 时间戳逐个文件取，同一请求内重名时向后递增一秒，
// 保证每个附件的存储文件名互不相同。
func (s *LetterService) storeUploads(ctx context.Context, letterID, userID string, uploads []Upload) ([]*domain.Attachment, error) {
	var out []*domain.Attachment
	used := make(map[string]struct{})
	for _, up := range uploads {
		ext := domain.FileExtension(up.Filename)
		if !domain.AllowedExtension(ext) {
			monitoring.AttachmentsSkipped.Inc()
			s.log.Warn("attachment skipped",
				zap.String("filename", up.Filename),
				zap.String("extension", ext),
			)
			continue
		}

		at := s.now()
		storedName := domain.StoredFilename(at, up.Filename)
		for {
			if _, ok := used[storedName]; !ok {
				break
			}
			at = at.Add(time.Second)
			storedName = domain.StoredFilename(at, up.Filename)
		}
		used[storedName] = struct{}{}

		if err := s.blobs.SaveBlob(ctx, storedName, up.Content); err != nil {
			return nil, fmt.Errorf("failed to store attachment %q: %w", up.Filename, err)
		}

		out = append(out, &domain.Attachment{
			ID:        uuid.NewString(),
			LetterID:  letterID,
			Filename:  storedName,
			Extension: ext,
			UserID:    userID,
			CreatedAt: at,
		})
		monitoring.AttachmentsStored.Inc()
	}
	return out, nil
}

// removeBlobs 回滚已落盘的附件文件
func (s *LetterService) removeBlobs(ctx context.Context, attachments []*domain.Attachment) {
	for _, at := range attachments {
		if err := s.blobs.RemoveBlob(ctx, at.Filename); err != nil {
			s.log.Warn("failed to remove attachment file",
				zap.String("filename", at.Filename),
				zap.Error(err),
			)
		}
	}
}

func (s *LetterService) checkClassification(ctx context.Context, code string) error {
	if code == "" {
		return ErrClassificationInvalid
	}
	if _, err := s.store.GetClassificationByCode(ctx, code); err != nil {
		if errors.Is(err, storage.ErrClassificationNotFound) {
			return ErrClassificationInvalid
		}
		return err
	}
	return nil
}

func (s *LetterService) notify(event string, letter *domain.Letter) {
	if s.notifier != nil {
		s.notifier.LetterEvent(event, letter)
	}
}
