package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore は画像をローカルディスクに保存する。
// 保存した画像はpublicPrefix（通常は"/uploads"）配下のURLで配信される。
type LocalStore struct {
	dir          string
	publicPrefix string
}

// NewLocalStore はdirを作成してLocalStoreを返す。
func NewLocalStore(dir, publicPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "channels"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, publicPrefix: strings.TrimRight(publicPrefix, "/")}, nil
}

// Dir は保存先ディレクトリを返す。
func (s *LocalStore) Dir() string {
	return s.dir
}

// Put は画像をファイルとして保存する。
func (s *LocalStore) Put(_ context.Context, img *Image) (string, error) {
	key := newKey(img)
	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.WriteFile(dst, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return s.publicPrefix + "/" + key, nil
}

// Delete は画像ファイルを削除する。存在しないファイルはエラーにしない。
func (s *LocalStore) Delete(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.publicPrefix+"/")
	if !ok || !strings.HasPrefix(key, "channels/") || strings.Contains(key, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

var _ ImageStore = (*LocalStore)(nil)
