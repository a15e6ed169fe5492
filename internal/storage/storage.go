package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"earsip/backend/internal/domain"
)

// 存储层统一的哨兵错误，上层通过 errors.Is 判断
var (
	ErrLetterNotFound         = errors.New("letter not found")
	ErrAttachmentNotFound     = errors.New("attachment not found")
	ErrClassificationNotFound = errors.New("classification not found")
	ErrClassificationExists   = errors.New("classification code already exists")
	ErrUserNotFound           = errors.New("user not found")
	ErrUserExists             = errors.New("user already exists")
	ErrSettingNotFound        = errors.New("setting not found")
)

// LetterRepository 信件仓储接口
type LetterRepository interface {
	// CreateLetter 保存新信件（含关联附件行，由实现保证原子性）
	CreateLetter(ctx context.Context, letter *domain.Letter) error
	// GetLetter 按 ID 获取信件，并预加载分类、登记人与附件
	GetLetter(ctx context.Context, id string) (*domain.Letter, error)
	// ListLetters 按条件分页查询信件
	ListLetters(ctx context.Context, criteria domain.LetterCriteria) (*domain.LetterPage, error)
	// UpdateLetter 更新信件字段
	UpdateLetter(ctx context.Context, letter *domain.Letter) error
	// DeleteLetter 删除信件及其附件行（同一事务）
	DeleteLetter(ctx context.Context, id string) error
}

// AttachmentRepository 附件元数据仓储接口
type AttachmentRepository interface {
	CreateAttachment(ctx context.Context, attachment *domain.Attachment) error
	GetAttachment(ctx context.Context, id string) (*domain.Attachment, error)
	ListAttachmentsByLetter(ctx context.Context, letterID string) ([]*domain.Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error
}

// ClassificationRepository 信件分类仓储接口
type ClassificationRepository interface {
	CreateClassification(ctx context.Context, c *domain.Classification) error
	GetClassificationByCode(ctx context.Context, code string) (*domain.Classification, error)
	ListClassifications(ctx context.Context) ([]*domain.Classification, error)
	UpdateClassification(ctx context.Context, c *domain.Classification) error
	DeleteClassification(ctx context.Context, id string) error
}

// UserRepository 用户仓储接口
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// SettingRepository 系统配置仓储接口
type SettingRepository interface {
	GetSetting(ctx context.Context, code string) (*domain.Setting, error)
	// SettingsMap 返回 code -> value 的完整映射，供信头渲染使用
	SettingsMap(ctx context.Context) (map[string]string, error)
	UpsertSetting(ctx context.Context, setting *domain.Setting) error
}

// BlobStore 附件文件内容存储接口
type BlobStore interface {
	// SaveBlob 将内容写入指定的存储文件名
	SaveBlob(ctx context.Context, storedName string, r io.Reader) error
	// OpenBlob 打开已存储的文件，调用方负责 Close
	OpenBlob(ctx context.Context, storedName string) (io.ReadCloser, error)
	// RemoveBlob 删除已存储的文件，不存在时不报错
	RemoveBlob(ctx context.Context, storedName string) error
}

// Store 聚合所有仓储接口，是服务层唯一依赖的存储抽象
type Store interface {
	LetterRepository
	AttachmentRepository
	ClassificationRepository
	UserRepository
	SettingRepository

	// Ping 检查底层存储连通性
	Ping(ctx context.Context) error
	// Close 释放底层资源
	Close() error
}

// Cache 读缓存接口，用于分类列表与系统配置等低频变更数据
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
