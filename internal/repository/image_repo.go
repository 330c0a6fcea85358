package repository

import (
	"context"

	"github.com/timmy/gallery/internal/domain"
	"gorm.io/gorm"
)

// ImageStore persists gallery image records.
type ImageStore interface {
	Create(ctx context.Context, image *domain.Image) error
	ListPage(ctx context.Context, after *Cursor, limit int) ([]domain.Image, error)
}

// ImageRepository handles image data operations.
type ImageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new ImageRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *ImageRepository: repository instance bound to db.
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Create inserts a new image record.
func (r *ImageRepository) Create(ctx context.Context, image *domain.Image) error {
	return r.db.WithContext(ctx).Create(image).Error
}

// ListPage returns up to limit images strictly after the cursor, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - after: keyset position; nil starts from the newest image.
//   - limit: maximum number of records to return.
// Returns:
//   - []domain.Image: matching image records.
//   - error: non-nil if the query fails.
func (r *ImageRepository) ListPage(ctx context.Context, after *Cursor, limit int) ([]domain.Image, error) {
	var images []domain.Image
	query := r.db.WithContext(ctx)
	if after != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
			after.CreatedAt, after.CreatedAt, after.ID)
	}
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}
