package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// LocalStorage implements ObjectStorage on a billy filesystem.
// Meant for development; the filesystem root is expected to be served at publicURL.
type LocalStorage struct {
	fs        billy.Filesystem
	publicURL string
}

// NewLocalStorage stores objects in fs. Keys that climb out of the
// filesystem root are rejected by its chroot.
// An empty publicURL yields file:// URLs under fs.Root().
func NewLocalStorage(fs billy.Filesystem, publicURL string) *LocalStorage {
	return &LocalStorage{fs: fs, publicURL: strings.TrimSuffix(publicURL, "/")}
}

// NewLocalStorageDir roots a LocalStorage at dir on the OS filesystem,
// creating the directory if needed.
func NewLocalStorageDir(dir, publicURL string) (*LocalStorage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}
	fs := osfs.New(abs)
	if err := fs.MkdirAll(".", 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return NewLocalStorage(fs, publicURL), nil
}

// Upload writes the object to key. Partial files are removed on failure.
func (s *LocalStorage) Upload(ctx context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := path.Dir(key); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create object directory %q: %w", dir, err)
		}
	}

	f, err := s.fs.Create(key)
	if err != nil {
		return fmt.Errorf("failed to create object %q: %w", key, err)
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		_ = s.fs.Remove(key)
		return fmt.Errorf("failed to write object %q: %w", key, err)
	}
	return f.Close()
}

func (s *LocalStorage) GetURL(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	u := url.URL{Scheme: "file", Path: path.Join(filepath.ToSlash(s.fs.Root()), key)}
	return u.String()
}
