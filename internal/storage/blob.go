package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
)

// BlobStore stores a selected file and returns the URL it is reachable at.
type BlobStore struct {
	objects ObjectStorage
	prefix  string
	newID   func() string
}

// NewBlobStore wraps an object store. Keys are "<prefix>/<uuid><ext>".
func NewBlobStore(objects ObjectStorage, prefix string) *BlobStore {
	return &BlobStore{
		objects: objects,
		prefix:  strings.Trim(prefix, "/"),
		newID:   func() string { return uuid.New().String() },
	}
}

// Upload stores file and returns its public URL.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - file: file contents and metadata; ContentType is sniffed when empty.
// Returns:
//   - string: URL of the stored object.
//   - error: non-nil if the object store rejects the write.
func (b *BlobStore) Upload(ctx context.Context, file *domain.File) (string, error) {
	if file == nil || len(file.Data) == 0 {
		return "", fmt.Errorf("no file data to upload")
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = DetectContentType(file.Data)
	}

	key := b.newID() + extensionFor(contentType, file.Name)
	if b.prefix != "" {
		key = b.prefix + "/" + key
	}

	if err := b.objects.Upload(ctx, key, bytes.NewReader(file.Data), int64(len(file.Data)), contentType); err != nil {
		return "", err
	}

	url := b.objects.GetURL(key)
	logger.With(logger.Fields{logger.FieldSize: len(file.Data)}).
		Info(logger.WithField(ctx, logger.FieldURL, url), "Blob stored: key=%s", key)
	return url, nil
}

// DetectContentType sniffs the MIME type of data, ignoring parameters.
func DetectContentType(data []byte) string {
	mt := mimetype.Detect(data)
	ct := mt.String()
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = ct[:idx]
	}
	return ct
}

func extensionFor(contentType, name string) string {
	if mt := mimetype.Lookup(contentType); mt != nil && mt.Extension() != "" {
		return mt.Extension()
	}
	return strings.ToLower(path.Ext(name))
}
