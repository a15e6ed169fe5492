package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"earsip/backend/internal/domain"
	"earsip/backend/internal/storage"
)

var (
	// ErrClassificationNotFound 分类不存在
	ErrClassificationNotFound = errors.New("classification not found")
	// ErrClassificationExists 分类代码已存在
	ErrClassificationExists = errors.New("classification code already exists")
)

const classificationsCacheKey = "classifications"

// ClassificationService 封装信件分类的业务逻辑。
// 分类是低频变更的参照数据，读路径走 cache-aside 缓存。
type ClassificationService struct {
	store storage.ClassificationRepository
	cache storage.Cache // 可选
	ttl   time.Duration
	log   *zap.Logger
}

// NewClassificationService 创建分类业务服务。
func NewClassificationService(store storage.ClassificationRepository, log *zap.Logger) *ClassificationService {
	return &ClassificationService{
		store: store,
		ttl:   10 * time.Minute,
		log:   log,
	}
}

// SetCache 设置读缓存
func (s *ClassificationService) SetCache(cache storage.Cache) {
	s.cache = cache
}

// CreateClassificationInput 定义新增分类的输入。
type CreateClassificationInput struct {
	Code        string
	Name        string
	Description string
}

// Create 新增分类。
func (s *ClassificationService) Create(ctx context.Context, input CreateClassificationInput) (*domain.Classification, error) {
	now := time.Now()
	c := &domain.Classification{
		ID:          uuid.NewString(),
		Code:        input.Code,
		Name:        input.Name,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateClassification(ctx, c); err != nil {
		if errors.Is(err, storage.ErrClassificationExists) {
			return nil, ErrClassificationExists
		}
		return nil, fmt.Errorf("failed to create classification: %w", err)
	}

	s.invalidate(ctx)
	return c, nil
}

// List 列出全部分类，优先读缓存。
func (s *ClassificationService) List(ctx context.Context) ([]*domain.Classification, error) {
	if s.cache != nil {
		if cached, hit, err := s.cache.Get(ctx, classificationsCacheKey); err == nil && hit {
			var out []*domain.Classification
			if err := json.Unmarshal([]byte(cached), &out); err == nil {
				return out, nil
			}
		}
	}

	out, err := s.store.ListClassifications(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, classificationsCacheKey, string(data), s.ttl); err != nil {
				s.log.Warn("failed to cache classifications", zap.Error(err))
			}
		}
	}
	return out, nil
}

// GetByCode 按 code 获取分类。
func (s *ClassificationService) GetByCode(ctx context.Context, code string) (*domain.Classification, error) {
	c, err := s.store.GetClassificationByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrClassificationNotFound) {
			return nil, ErrClassificationNotFound
		}
		return nil, err
	}
	return c, nil
}

// UpdateClassificationInput 定义更新分类的输入。
type UpdateClassificationInput struct {
	Code        string
	Name        string
	Description string
}

// Update 更新分类。
func (s *ClassificationService) Update(ctx context.Context, id string, input UpdateClassificationInput) (*domain.Classification, error) {
	c := &domain.Classification{
		ID:          id,
		Code:        input.Code,
		Name:        input.Name,
		Description: input.Description,
		UpdatedAt:   time.Now(),
	}

	if err := s.store.UpdateClassification(ctx, c); err != nil {
		if errors.Is(err, storage.ErrClassificationNotFound) {
			return nil, ErrClassificationNotFound
		}
		return nil, fmt.Errorf("failed to update classification: %w", err)
	}

	s.invalidate(ctx)
	return s.store.GetClassificationByCode(ctx, input.Code)
}

// Delete 删除分类。
func (s *ClassificationService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteClassification(ctx, id); err != nil {
		if errors.Is(err, storage.ErrClassificationNotFound) {
			return ErrClassificationNotFound
		}
		return fmt.Errorf("failed to delete classification: %w", err)
	}

	s.invalidate(ctx)
	return nil
}

func (s *ClassificationService) invalidate(ctx context.Context) {
	if s.cache != nil {
		if err := s.cache.Del(ctx, classificationsCacheKey); err != nil {
			s.log.Warn("failed to invalidate classification cache", zap.Error(err))
		}
	}
}
