package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/timmy/gallery/internal/domain"
)

// MemoryImageRepository keeps images in process memory. Used for local
// development without a database and in tests.
type MemoryImageRepository struct {
	mu     sync.RWMutex
	images []domain.Image // newest first
}

func NewMemoryImageRepository() *MemoryImageRepository {
	return &MemoryImageRepository{}
}

func (r *MemoryImageRepository) Create(_ context.Context, image *domain.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.images {
		if existing.ID == image.ID {
			return fmt.Errorf("image %s already exists", image.ID)
		}
	}
	r.images = append(r.images, *image)
	sort.SliceStable(r.images, func(i, j int) bool {
		return newerThan(r.images[i], r.images[j].CreatedAt, r.images[j].ID)
	})
	return nil
}

func (r *MemoryImageRepository) ListPage(_ context.Context, after *Cursor, limit int) ([]domain.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Image, 0, limit)
	for _, image := range r.images {
		if len(out) == limit {
			break
		}
		if after != nil && !olderThan(image, after) {
			continue
		}
		out = append(out, image)
	}
	return out, nil
}

func newerThan(image domain.Image, createdAt time.Time, id string) bool {
	a, b := image.CreatedAt.UnixNano(), createdAt.UnixNano()
	if a != b {
		return a > b
	}
	return image.ID > id
}

// olderThan reports whether image sorts strictly after the cursor position.
func olderThan(image domain.Image, c *Cursor) bool {
	a, b := image.CreatedAt.UnixNano(), c.CreatedAt.UnixNano()
	if a != b {
		return a < b
	}
	return image.ID < c.ID
}
