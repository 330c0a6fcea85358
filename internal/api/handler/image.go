package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/repository"
)

// DefaultPageSize is used when the handler is built with a non-positive page size.
const DefaultPageSize = 6

// ImageDTO is the wire form of an image record. TS is unix milliseconds.
type ImageDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	TS          int64  `json:"ts"`
}

// ListImagesResponse is one page of images. After is omitted on the last page.
type ListImagesResponse struct {
	Data  []ImageDTO `json:"data"`
	After string     `json:"after,omitempty"`
}

func toDTO(img *domain.Image) ImageDTO {
	return ImageDTO{
		ID:          img.ID,
		Title:       img.Title,
		Description: img.Description,
		URL:         img.URL,
		TS:          img.CreatedAt.UnixMilli(),
	}
}

// ImageHandler handles image listing and registration.
type ImageHandler struct {
	store    repository.ImageStore
	pageSize int
	now      func() time.Time
}

// NewImageHandler creates a new image handler.
// Parameters:
//   - store: image persistence backend.
//   - pageSize: number of images per page.
// Returns:
//   - *ImageHandler: initialized handler.
func NewImageHandler(store repository.ImageStore, pageSize int) *ImageHandler {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ImageHandler{
		store:    store,
		pageSize: pageSize,
		now:      time.Now,
	}
}

// ListImages handles GET /api/images.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImageHandler) ListImages(c *gin.Context) {
	ctx := c.Request.Context()

	var after *repository.Cursor
	if raw := c.Query("after"); raw != "" {
		cursor, err := repository.DecodeCursor(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
			return
		}
		after = cursor
	}

	// One extra row tells us whether another page exists.
	images, err := h.store.ListPage(ctx, after, h.pageSize+1)
	if err != nil {
		logger.CtxError(ctx, "Failed to list images: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list images"})
		return
	}

	resp := ListImagesResponse{Data: make([]ImageDTO, 0, h.pageSize)}
	if len(images) > h.pageSize {
		images = images[:h.pageSize]
		last := images[len(images)-1]
		resp.After = repository.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	for i := range images {
		resp.Data = append(resp.Data, toDTO(&images[i]))
	}

	logger.With(logger.Fields{
		logger.FieldCount:  len(resp.Data),
		logger.FieldCursor: c.Query("after"),
	}).Debug(ctx, "Listed images")

	c.JSON(http.StatusOK, resp)
}

// CreateImage handles POST /api/images.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImageHandler) CreateImage(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.CreateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	img := &domain.Image{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		URL:         req.URL,
		CreatedAt:   h.now().UTC(),
	}
	if err := h.store.Create(ctx, img); err != nil {
		logger.With(logger.Fields{
			logger.FieldImageID: img.ID,
			logger.FieldURL:     img.URL,
		}).Error(ctx, "Failed to create image: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create image"})
		return
	}

	logger.With(logger.Fields{
		logger.FieldImageID: img.ID,
		logger.FieldURL:     img.URL,
	}).Info(ctx, "Image registered")

	c.JSON(http.StatusCreated, toDTO(img))
}
