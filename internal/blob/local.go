package blob

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"os"
	"path/filepath"
)

// ローカルのファイルシステム。名前はそのままパスとして扱う
type LocalStore struct {
	perm os.FileMode
}

func NewLocalStore() *LocalStore {
	return &LocalStore{perm: 0o644}
}

func (s *LocalStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(name)
}

// 同じディレクトリの一時ファイルに書き切ってから rename で置き換える
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(name), fmt.Sprintf(".%s.%s.tmp", filepath.Base(name), uuid.NewString()))
	if err := s.writeFile(tmp, data); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, name); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s *LocalStore) writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.perm)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
