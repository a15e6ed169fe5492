package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"earsip/backend/internal/domain"
	"earsip/backend/internal/storage"
)

const settingsCacheKey = "settings"

// SettingService 封装信头/打印配置的业务逻辑。
type SettingService struct {
	store storage.SettingRepository
	cache storage.Cache // 可选
	ttl   time.Duration
	log   *zap.Logger
}

// NewSettingService 创建配置业务服务。
func NewSettingService(store storage.SettingRepository, log *zap.Logger) *SettingService {
	return &SettingService{
		store: store,
		ttl:   10 * time.Minute,
		log:   log,
	}
}

// SetCache 设置读缓存
func (s *SettingService) SetCache(cache storage.Cache) {
	s.cache = cache
}

// Map 返回 code -> value 的完整配置映射，优先读缓存。
func (s *SettingService) Map(ctx context.Context) (map[string]string, error) {
	if s.cache != nil {
		if cached, hit, err := s.cache.Get(ctx, settingsCacheKey); err == nil && hit {
			var out map[string]string
			if err := json.Unmarshal([]byte(cached), &out); err == nil {
				return out, nil
			}
		}
	}

	out, err := s.store.SettingsMap(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, settingsCacheKey, string(data), s.ttl); err != nil {
				s.log.Warn("failed to cache settings", zap.Error(err))
			}
		}
	}
	return out, nil
}

// Set 写入配置项并使缓存失效。
func (s *SettingService) Set(ctx context.Context, code, value string) error {
	if err := s.store.UpsertSetting(ctx, &domain.Setting{Code: code, Value: value}); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, settingsCacheKey); err != nil {
			s.log.Warn("failed to invalidate settings cache", zap.Error(err))
		}
	}
	return nil
}
