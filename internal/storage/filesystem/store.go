// Package filesystem 将附件文件内容保存在本地磁盘上。
package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Store 本地磁盘的附件内容存储，所有文件放在 root 下的 attachments 目录
type Store struct {
	root string
	log  *zap.Logger
}

// NewStore 创建附件文件存储，目录不存在时自动创建
func NewStore(root string, log *zap.Logger) (*Store, error) {
	dir := filepath.Join(root, "attachments")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create attachment directory: %w", err)
	}
	return &Store{root: dir, log: log}, nil
}

// SaveBlob 将内容写入指定的存储文件名
func (s *Store) SaveBlob(ctx context.Context, storedName string, r io.Reader) error {
	path, err := s.resolve(storedName)
	if err != nil {
		return err
	}

	// 先写临时文件再改名，避免出现半写的附件
	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write attachment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close attachment file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to store attachment: %w", err)
	}

	s.log.Debug("attachment stored", zap.String("filename", storedName))
	return nil
}

// OpenBlob 打开已存储的文件，调用方负责 Close
func (s *Store) OpenBlob(ctx context.Context, storedName string) (io.ReadCloser, error) {
	path, err := s.resolve(storedName)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return f, nil
}

// RemoveBlob 删除已存储的文件，不存在时不报错
func (s *Store) RemoveBlob(ctx context.Context, storedName string) error {
	path, err := s.resolve(storedName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove attachment: %w", err)
	}
	return nil
}

// resolve 拼出磁盘路径并拒绝路径穿越
func (s *Store) resolve(storedName string) (string, error) {
	if storedName == "" || strings.Contains(storedName, "..") ||
		strings.ContainsAny(storedName, "/\\") {
		return "", fmt.Errorf("invalid attachment filename: %q", storedName)
	}
	return filepath.Join(s.root, storedName), nil
}
