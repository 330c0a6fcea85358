package domain

import "time"

// Image is the persisted gallery record served by the reference backend.
type Image struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	URL         string    `gorm:"type:text;not null" json:"url"`
	CreatedAt   time.Time `gorm:"index:idx_images_created_at" json:"created_at"`
}

// TableName returns the database table name for Image.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Image) TableName() string {
	return "images"
}

// ToItem converts the stored record into the client-facing Item.
func (i *Image) ToItem() Item {
	return Item{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		URL:         i.URL,
		CreatedAt:   i.CreatedAt,
	}
}

// Item is a single gallery image as seen by the client.
// Items are immutable once fetched.
type Item struct {
	ID          string
	Title       string
	Description string
	URL         string
	CreatedAt   time.Time
}

// CreateImageRequest is the body of a create-record call.
type CreateImageRequest struct {
	URL         string `json:"url" binding:"required,url"`
	Title       string `json:"title" binding:"required,min=2,max=20"`
	Description string `json:"description" binding:"required,max=65"`
}
