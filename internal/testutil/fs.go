package testutil

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrInjected はFailingFsが返すエラー
var ErrInjected = errors.New("testutil: 読み込みエラー")

// FailingFs は指定したパスのオープンだけを失敗させるafero.Fs
type FailingFs struct {
	afero.Fs
	fail map[string]bool
}

// NewFailingFs は base を包み、paths のオープンを失敗させる
func NewFailingFs(base afero.Fs, paths ...string) *FailingFs {
	fail := make(map[string]bool, len(paths))
	for _, p := range paths {
		fail[filepath.Clean(p)] = true
	}
	return &FailingFs{Fs: base, fail: fail}
}

func (f *FailingFs) Open(name string) (afero.File, error) {
	if f.fail[filepath.Clean(name)] {
		return nil, &os.PathError{Op: "open", Path: name, Err: ErrInjected}
	}
	return f.Fs.Open(name)
}

func (f *FailingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if f.fail[filepath.Clean(name)] {
		return nil, &os.PathError{Op: "open", Path: name, Err: ErrInjected}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

// WriteFiles はメモリ上のファイルシステムにファイルをまとめて作成する
func WriteFiles(fs afero.Fs, files map[string]string) error {
	for name, content := range files {
		if err := fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
			return err
		}
		if err := afero.WriteFile(fs, name, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}
