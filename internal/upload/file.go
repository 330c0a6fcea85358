package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/storage"
)

// LoadFile reads a local file into a domain.File, sniffing its MIME type.
// Files at or above MaxFileSize are not read into memory; the returned File
// carries the real size and no data so validation can reject it.
func LoadFile(path string) (*domain.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	file := &domain.File{
		Name: filepath.Base(path),
		Size: info.Size(),
	}

	if info.Size() >= MaxFileSize {
		head := make([]byte, 3072)
		n, err := io.ReadFull(f, head)
		if err != nil && err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		file.ContentType = storage.DetectContentType(head[:n])
		return file, nil
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	file.Data = data
	file.Size = int64(len(data))
	file.ContentType = storage.DetectContentType(data)
	return file, nil
}
