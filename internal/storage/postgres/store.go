// Package postgres 提供基于 GORM 的持久化存储实现，
// 支持 PostgreSQL 与 MySQL 两种方言。
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"earsip/backend/internal/config"
	"earsip/backend/internal/domain"
	"earsip/backend/internal/storage"
)

// Store 基于 GORM 的存储实现
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewStore 按配置建立数据库连接并返回存储实例
func NewStore(cfg *config.DatabaseConfig, log *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("connected to database",
		zap.String("type", cfg.Type),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)

	return &Store{db: db, log: log}, nil
}

// AutoMigrate 建立或更新全部数据表
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&domain.User{},
		&domain.Classification{},
		&domain.Letter{},
		&domain.Attachment{},
		&domain.Setting{},
	)
}

// DB 返回底层的 GORM 句柄，仅供迁移工具使用
func (s *Store) DB() *gorm.DB {
	return s.db
}

// CreateLetter 在同一事务中保存信件与附件行
func (s *Store) CreateLetter(ctx context.Context, letter *domain.Letter) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attachments := letter.Attachments
		letter.Attachments = nil
		if err := tx.Create(letter).Error; err != nil {
			return fmt.Errorf("failed to create letter: %w", err)
		}
		for _, at := range attachments {
			if err := tx.Create(at).Error; err != nil {
				return fmt.Errorf("failed to create attachment: %w", err)
			}
		}
		letter.Attachments = attachments
		return nil
	})
}

// GetLetter 按 ID 获取信件并预加载关联数据
func (s *Store) GetLetter(ctx context.Context, id string) (*domain.Letter, error) {
	var letter domain.Letter
	err := s.db.WithContext(ctx).
		Preload("Classification").
		Preload("User").
		Preload("Attachments").
		First(&letter, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrLetterNotFound
		}
		return nil, fmt.Errorf("failed to get letter: %w", err)
	}
	return &letter, nil
}

// ListLetters 按条件分页查询信件
func (s *Store) ListLetters(ctx context.Context, criteria domain.LetterCriteria) (*domain.LetterPage, error) {
	query := s.applyCriteria(s.db.WithContext(ctx).Model(&domain.Letter{}), criteria)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count letters: %w", err)
	}

	page := criteria.Page
	if page < 1 {
		page = 1
	}
	size := criteria.PageSize
	if size < 1 {
		size = domain.DefaultPageSize
	}

	query = query.
		Preload("Classification").
		Preload("User").
		Preload("Attachments").
		Order("received_date DESC, created_at DESC")
	if criteria.Unpaginated {
		page, size = 1, int(total)
	} else {
		query = query.Offset((page - 1) * size).Limit(size)
	}

	var items []domain.Letter
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list letters: %w", err)
	}
	return domain.NewLetterPage(items, int(total), page, size), nil
}

// UpdateLetter 更新信件字段
func (s *Store) UpdateLetter(ctx context.Context, letter *domain.Letter) error {
	result := s.db.WithContext(ctx).Model(&domain.Letter{}).
		Where("id = ?", letter.ID).
		Updates(map[string]interface{}{
			"reference_number":    letter.ReferenceNumber,
			"agenda_number":       letter.AgendaNumber,
			"sender":              letter.Sender,
			"regarding":           letter.Regarding,
			"letter_date":         letter.LetterDate,
			"received_date":       letter.ReceivedDate,
			"classification_code": letter.ClassificationCode,
			"updated_at":          letter.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update letter: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrLetterNotFound
	}
	return nil
}

// DeleteLetter 在同一事务中删除信件及其附件行
func (s *Store) DeleteLetter(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("letter_id = ?", id).Delete(&domain.Attachment{}).Error; err != nil {
			return fmt.Errorf("failed to delete attachments: %w", err)
		}
		result := tx.Delete(&domain.Letter{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete letter: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return storage.ErrLetterNotFound
		}
		return nil
	})
}

func (s *Store) applyCriteria(query *gorm.DB, criteria domain.LetterCriteria) *gorm.DB {
	if criteria.Type != "" {
		query = query.Where("type = ?", criteria.Type)
	}
	if criteria.UserID != "" {
		query = query.Where("user_id = ?", criteria.UserID)
	}
	if criteria.Classification != "" {
		query = query.Where("classification_code = ?", criteria.Classification)
	}
	if criteria.Since != nil {
		query = query.Where("received_date >= ?", *criteria.Since)
	}
	if criteria.Until != nil {
		query = query.Where("received_date <= ?", *criteria.Until)
	}
	if criteria.Search != "" {
		term := "%" + strings.ToLower(criteria.Search) + "%"
		query = query.Where(
			"LOWER(reference_number) LIKE ? OR LOWER(agenda_number) LIKE ? OR LOWER(sender) LIKE ? OR LOWER(regarding) LIKE ?",
			term, term, term, term,
		)
	}
	return query
}

// CreateAttachment 保存附件元数据
func (s *Store) CreateAttachment(ctx context.Context, attachment *domain.Attachment) error {
	if err := s.db.WithContext(ctx).Create(attachment).Error; err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

// GetAttachment 按 ID 获取附件元数据
func (s *Store) GetAttachment(ctx context.Context, id string) (*domain.Attachment, error) {
	var at domain.Attachment
	err := s.db.WithContext(ctx).First(&at, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return &at, nil
}

// ListAttachmentsByLetter 列出某封信件的全部附件
func (s *Store) ListAttachmentsByLetter(ctx context.Context, letterID string) ([]*domain.Attachment, error) {
	var out []*domain.Attachment
	err := s.db.WithContext(ctx).
		Where("letter_id = ?", letterID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return out, nil
}

// DeleteAttachment 删除附件元数据
func (s *Store) DeleteAttachment(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.Attachment{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete attachment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrAttachmentNotFound
	}
	return nil
}

// CreateClassification 新增分类
func (s *Store) CreateClassification(ctx context.Context, c *domain.Classification) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.Classification{}).
		Where("code = ?", c.Code).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check classification code: %w", err)
	}
	if count > 0 {
		return storage.ErrClassificationExists
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create classification: %w", err)
	}
	return nil
}

// GetClassificationByCode 按 code 获取分类
func (s *Store) GetClassificationByCode(ctx context.Context, code string) (*domain.Classification, error) {
	var c domain.Classification
	err := s.db.WithContext(ctx).First(&c, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrClassificationNotFound
		}
		return nil, fmt.Errorf("failed to get classification: %w", err)
	}
	return &c, nil
}

// ListClassifications 列出全部分类
func (s *Store) ListClassifications(ctx context.Context) ([]*domain.Classification, error) {
	var out []*domain.Classification
	if err := s.db.WithContext(ctx).Order("code ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", err)
	}
	return out, nil
}

// UpdateClassification 更新分类
func (s *Store) UpdateClassification(ctx context.Context, c *domain.Classification) error {
	result := s.db.WithContext(ctx).Model(&domain.Classification{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"code":        c.Code,
			"name":        c.Name,
			"description": c.Description,
			"updated_at":  c.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update classification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrClassificationNotFound
	}
	return nil
}

// DeleteClassification 按 ID 删除分类
func (s *Store) DeleteClassification(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.Classification{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete classification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrClassificationNotFound
	}
	return nil
}

// CreateUser 新增用户
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check user email: %w", err)
	}
	if count > 0 {
		return storage.ErrUserExists
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser 按 ID 获取用户
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail 按邮箱获取用户
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, "LOWER(email) = LOWER(?)", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// UpdateUser 更新用户
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	result := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"email":         user.Email,
			"username":      user.Username,
			"password_hash": user.PasswordHash,
			"role":          user.Role,
			"is_active":     user.IsActive,
			"last_login_at": user.LastLoginAt,
			"updated_at":    user.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// ListUsers 列出全部用户
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var out []*domain.User
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return out, nil
}

// GetSetting 按 code 获取配置项
func (s *Store) GetSetting(ctx context.Context, code string) (*domain.Setting, error) {
	var setting domain.Setting
	err := s.db.WithContext(ctx).First(&setting, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrSettingNotFound
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return &setting, nil
}

// SettingsMap 返回 code -> value 的完整映射
func (s *Store) SettingsMap(ctx context.Context) (map[string]string, error) {
	var settings []domain.Setting
	if err := s.db.WithContext(ctx).Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	out := make(map[string]string, len(settings))
	for _, v := range settings {
		out[v.Code] = v.Value
	}
	return out, nil
}

// UpsertSetting 写入或覆盖配置项
func (s *Store) UpsertSetting(ctx context.Context, setting *domain.Setting) error {
	err := s.db.WithContext(ctx).
		Where("code = ?", setting.Code).
		Assign(map[string]interface{}{"value": setting.Value}).
		FirstOrCreate(&domain.Setting{Code: setting.Code, Value: setting.Value}).Error
	if err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}
	return nil
}

// Ping 检查数据库连通性
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.log.Info("database connection closed")
	return sqlDB.Close()
}
