package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nemonet1337/drumledger/pkg/inventory"
)

// LocalStore keeps blobs as files under a directory. Writes go to a temporary file that is
// renamed over the target, so readers never see a partial table.
// ディレクトリ配下のファイルとしてBLOBを保存（一時ファイル＋リネームで原子的に書き込み）
type LocalStore struct {
	dir    string
	logger *zap.Logger
}

var _ inventory.FileStore = (*LocalStore)(nil)

// NewLocalStore creates the directory if needed
// 必要に応じてディレクトリを作成
func NewLocalStore(dir string, logger *zap.Logger) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("保存先ディレクトリが指定されていません")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("保存先ディレクトリの作成に失敗しました: %w", err)
	}
	return &LocalStore{dir: dir, logger: logger}, nil
}

func (s *LocalStore) path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("無効なファイル名です: %s", name)
	}
	return filepath.Join(s.dir, clean), nil
}

// Get reads the named file
// ファイルを読み込む
func (s *LocalStore) Get(_ context.Context, name string) ([]byte, bool, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ファイル読み込みに失敗しました: %w", err)
	}
	return data, true, nil
}

// Put writes the named file atomically
// ファイルを原子的に書き込む
func (s *LocalStore) Put(_ context.Context, name string, data []byte) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("ディレクトリ作成に失敗しました: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイル作成に失敗しました: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("一時ファイル書き込みに失敗しました: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("一時ファイルの同期に失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("一時ファイルのクローズに失敗しました: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("ファイルの置き換えに失敗しました: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("ファイル保存完了", zap.String("path", p), zap.Int("bytes", len(data)))
	}
	return nil
}

// Ping checks that the directory is still reachable
func (s *LocalStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s はディレクトリではありません", s.dir)
	}
	return nil
}
