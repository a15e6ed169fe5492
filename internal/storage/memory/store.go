// Package memory 提供纯内存的存储实现，用于本地开发与单元测试。
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"earsip/backend/internal/domain"
	"earsip/backend/internal/storage"
)

// Store 内存存储实现，所有数据保存在进程内的 map 中
type Store struct {
	mu              sync.RWMutex
	letters         map[string]*domain.Letter
	attachments     map[string]*domain.Attachment
	classifications map[string]*domain.Classification
	users           map[string]*domain.User
	usersByEmail    map[string]string
	settings        map[string]*domain.Setting
}

// NewStore 创建空的内存存储
func NewStore() *Store {
	return &Store{
		letters:         make(map[string]*domain.Letter),
		attachments:     make(map[string]*domain.Attachment),
		classifications: make(map[string]*domain.Classification),
		users:           make(map[string]*domain.User),
		usersByEmail:    make(map[string]string),
		settings:        make(map[string]*domain.Setting),
	}
}

// CreateLetter 保存新信件及其附件行
func (s *Store) CreateLetter(ctx context.Context, letter *domain.Letter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneLetter(letter)
	s.letters[clone.ID] = clone
	for _, at := range letter.Attachments {
		a := *at
		s.attachments[a.ID] = &a
	}
	return nil
}

// GetLetter 按 ID 获取信件并填充关联数据
func (s *Store) GetLetter(ctx context.Context, id string) (*domain.Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	letter, ok := s.letters[id]
	if !ok {
		return nil, storage.ErrLetterNotFound
	}
	return s.hydrate(letter), nil
}

// ListLetters 按条件过滤并分页
func (s *Store) ListLetters(ctx context.Context, criteria domain.LetterCriteria) (*domain.LetterPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.filter(criteria)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].ReceivedDate.Equal(matched[j].ReceivedDate) {
			return matched[i].ReceivedDate.After(matched[j].ReceivedDate)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	page := criteria.Page
	if page < 1 {
		page = 1
	}
	size := criteria.PageSize
	if size < 1 {
		size = domain.DefaultPageSize
	}
	if criteria.Unpaginated {
		page, size = 1, total
	} else {
		start := (page - 1) * size
		if start > len(matched) {
			start = len(matched)
		}
		end := start + size
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}

	items := make([]domain.Letter, 0, len(matched))
	for _, l := range matched {
		items = append(items, *s.hydrate(l))
	}
	return domain.NewLetterPage(items, total, page, size), nil
}

// UpdateLetter 覆盖更新信件字段
func (s *Store) UpdateLetter(ctx context.Context, letter *domain.Letter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.letters[letter.ID]; !ok {
		return storage.ErrLetterNotFound
	}
	s.letters[letter.ID] = cloneLetter(letter)
	return nil
}

// DeleteLetter 删除信件及其附件行
func (s *Store) DeleteLetter(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.letters[id]; !ok {
		return storage.ErrLetterNotFound
	}
	delete(s.letters, id)
	for aid, at := range s.attachments {
		if at.LetterID == id {
			delete(s.attachments, aid)
		}
	}
	return nil
}

// filter 调用方需持有读锁
func (s *Store) filter(criteria domain.LetterCriteria) []*domain.Letter {
	var matched []*domain.Letter
	for _, l := range s.letters {
		if criteria.Type != "" && l.Type != criteria.Type {
			continue
		}
		if criteria.UserID != "" && l.UserID != criteria.UserID {
			continue
		}
		if criteria.Classification != "" && l.ClassificationCode != criteria.Classification {
			continue
		}
		if criteria.Since != nil && l.ReceivedDate.Before(*criteria.Since) {
			continue
		}
		if criteria.Until != nil && l.ReceivedDate.After(*criteria.Until) {
			continue
		}
		if criteria.Search != "" && !matchesSearch(l, criteria.Search) {
			continue
		}
		matched = append(matched, l)
	}
	return matched
}

func matchesSearch(l *domain.Letter, term string) bool {
	term = strings.ToLower(term)
	for _, field := range []string{l.ReferenceNumber, l.AgendaNumber, l.Sender, l.Regarding} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// hydrate 调用方需持有读锁
func (s *Store) hydrate(letter *domain.Letter) *domain.Letter {
	out := cloneLetter(letter)
	if c, ok := s.classifications[letter.ClassificationCode]; ok {
		cc := *c
		out.Classification = &cc
	}
	if uid, ok := s.users[letter.UserID]; ok {
		uu := *uid
		out.User = &uu
	}
	for _, at := range s.attachments {
		if at.LetterID == letter.ID {
			a := *at
			out.Attachments = append(out.Attachments, &a)
		}
	}
	sort.Slice(out.Attachments, func(i, j int) bool {
		return out.Attachments[i].CreatedAt.Before(out.Attachments[j].CreatedAt)
	})
	return out
}

func cloneLetter(letter *domain.Letter) *domain.Letter {
	clone := *letter
	clone.Classification = nil
	clone.User = nil
	clone.Attachments = nil
	return &clone
}

// CreateAttachment 保存附件元数据
func (s *Store) CreateAttachment(ctx context.Context, attachment *domain.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := *attachment
	s.attachments[a.ID] = &a
	return nil
}

// GetAttachment 按 ID 获取附件元数据
func (s *Store) GetAttachment(ctx context.Context, id string) (*domain.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at, ok := s.attachments[id]
	if !ok {
		return nil, storage.ErrAttachmentNotFound
	}
	a := *at
	return &a, nil
}

// ListAttachmentsByLetter 列出某封信件的全部附件
func (s *Store) ListAttachmentsByLetter(ctx context.Context, letterID string) ([]*domain.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Attachment
	for _, at := range s.attachments {
		if at.LetterID == letterID {
			a := *at
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteAttachment 删除附件元数据
func (s *Store) DeleteAttachment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attachments[id]; !ok {
		return storage.ErrAttachmentNotFound
	}
	delete(s.attachments, id)
	return nil
}

// CreateClassification 新增分类，code 唯一
func (s *Store) CreateClassification(ctx context.Context, c *domain.Classification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.classifications[c.Code]; ok {
		return storage.ErrClassificationExists
	}
	cc := *c
	s.classifications[cc.Code] = &cc
	return nil
}

// GetClassificationByCode 按 code 获取分类
func (s *Store) GetClassificationByCode(ctx context.Context, code string) (*domain.Classification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.classifications[code]
	if !ok {
		return nil, storage.ErrClassificationNotFound
	}
	cc := *c
	return &cc, nil
}

// ListClassifications 列出全部分类，按 code 排序
func (s *Store) ListClassifications(ctx context.Context) ([]*domain.Classification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Classification, 0, len(s.classifications))
	for _, c := range s.classifications {
		cc := *c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// UpdateClassification 更新分类
func (s *Store) UpdateClassification(ctx context.Context, c *domain.Classification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.classifications[c.Code]
	if !ok || existing.ID != c.ID {
		// code 变更时按 ID 查找旧记录
		var oldCode string
		for code, cl := range s.classifications {
			if cl.ID == c.ID {
				oldCode = code
				break
			}
		}
		if oldCode == "" {
			return storage.ErrClassificationNotFound
		}
		delete(s.classifications, oldCode)
	}
	cc := *c
	s.classifications[cc.Code] = &cc
	return nil
}

// DeleteClassification 按 ID 删除分类
func (s *Store) DeleteClassification(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for code, c := range s.classifications {
		if c.ID == id {
			delete(s.classifications, code)
			return nil
		}
	}
	return storage.ErrClassificationNotFound
}

// CreateUser 新增用户，邮箱唯一
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, ok := s.usersByEmail[email]; ok {
		return storage.ErrUserExists
	}
	u := *user
	s.users[u.ID] = &u
	s.usersByEmail[email] = u.ID
	return nil
}

// GetUser 按 ID 获取用户
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	uu := *u
	return &uu, nil
}

// GetUserByEmail 按邮箱获取用户
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	u := *s.users[id]
	return &u, nil
}

// UpdateUser 更新用户
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[user.ID]
	if !ok {
		return storage.ErrUserNotFound
	}
	if !strings.EqualFold(old.Email, user.Email) {
		delete(s.usersByEmail, strings.ToLower(old.Email))
		s.usersByEmail[strings.ToLower(user.Email)] = user.ID
	}
	u := *user
	s.users[u.ID] = &u
	return nil
}

// ListUsers 列出全部用户
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		uu := *u
		out = append(out, &uu)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// GetSetting 按 code 获取配置项
func (s *Store) GetSetting(ctx context.Context, code string) (*domain.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.settings[code]
	if !ok {
		return nil, storage.ErrSettingNotFound
	}
	vv := *v
	return &vv, nil
}

// SettingsMap 返回 code -> value 映射
func (s *Store) SettingsMap(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.settings))
	for code, v := range s.settings {
		out[code] = v.Value
	}
	return out, nil
}

// UpsertSetting 写入或覆盖配置项
func (s *Store) UpsertSetting(ctx context.Context, setting *domain.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := *setting
	s.settings[v.Code] = &v
	return nil
}

// Ping 内存存储始终可用
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close 无资源需要释放
func (s *Store) Close() error { return nil }
