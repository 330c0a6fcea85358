package storage

import (
	"github.com/timmy/gallery/internal/config"
)

// NewBlobStoreFromConfig builds the blob store used by the upload pipeline.
// Type "local" writes to a directory; every other type talks to S3.
// Parameters:
//   - cfg: storage section of the application config.
// Returns:
//   - *BlobStore: blob store writing under cfg.KeyPrefix.
//   - error: non-nil if the configuration is invalid or the client cannot be created.
func NewBlobStoreFromConfig(cfg *config.StorageConfig) (*BlobStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Type == "local" {
		objects, err := NewLocalStorageDir(cfg.Path, cfg.PublicURL)
		if err != nil {
			return nil, err
		}
		return NewBlobStore(objects, cfg.KeyPrefix), nil
	}

	objects, err := NewS3Storage(&S3Config{
		Type:      StorageType(cfg.Type),
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		PublicURL: cfg.PublicURL,
	})
	if err != nil {
		return nil, err
	}

	return NewBlobStore(objects, cfg.KeyPrefix), nil
}
