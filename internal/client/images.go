package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
)

const imagesPath = "/api/images"

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 256

// ImageClient talks to the gallery list and create endpoints.
type ImageClient struct {
	client *resty.Client
}

// Config holds configuration for the image client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// NewImageClient creates a new image client.
// Parameters:
//   - cfg: base URL and transport settings.
//
// Returns:
//   - *ImageClient: initialized client. Requests are never retried automatically.
func NewImageClient(cfg *Config) *ImageClient {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/"))
	client.SetHeader("Accept", "application/json")
	client.SetHeader("Content-Type", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return &ImageClient{client: client}
}

// imageDTO is the wire representation of an image record.
type imageDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	TS          int64  `json:"ts"` // unix milliseconds
}

func (d imageDTO) toItem() domain.Item {
	return domain.Item{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		URL:         d.URL,
		CreatedAt:   time.UnixMilli(d.TS).UTC(),
	}
}

// listResponse uses pointers so a missing field can be told apart from an empty one.
type listResponse struct {
	Data  *[]imageDTO `json:"data"`
	After *string     `json:"after"`
}

// ListImages fetches one page of images.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - cursor: value of the previous page's "after"; empty requests the first page.
//
// Returns:
//   - *domain.Page: decoded page; NextCursor is empty at the end of the list.
//   - error: *domain.NetworkError on transport or HTTP failure, *domain.ParseError on a malformed body.
func (c *ImageClient) ListImages(ctx context.Context, cursor string) (*domain.Page, error) {
	const op = "list images"

	req := c.client.R().SetContext(ctx)
	if cursor != "" {
		req.SetQueryParam("after", cursor)
	}

	start := time.Now()
	resp, err := req.Get(imagesPath)
	if err != nil {
		return nil, &domain.NetworkError{Op: op, Err: err}
	}
	if err := checkStatus(op, resp); err != nil {
		return nil, err
	}

	page, err := decodePage(resp.Body())
	if err != nil {
		return nil, &domain.ParseError{Op: op, Err: err}
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldCount:      len(page.Items),
	}).Debug(logger.WithField(ctx, logger.FieldCursor, cursor), "Image page received")

	return page, nil
}

func decodePage(body []byte) (*domain.Page, error) {
	var payload listResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.Data == nil {
		return nil, errors.New(`missing "data" field`)
	}

	page := &domain.Page{Items: make([]domain.Item, 0, len(*payload.Data))}
	for _, dto := range *payload.Data {
		page.Items = append(page.Items, dto.toItem())
	}
	if payload.After != nil {
		page.NextCursor = *payload.After
	}
	return page, nil
}

// CreateImage registers an already uploaded image.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - body: url, title and description of the new record.
//
// Returns:
//   - *domain.Item: the created record as returned by the server.
//   - error: *domain.NetworkError on transport or HTTP failure, *domain.ParseError on a malformed body.
func (c *ImageClient) CreateImage(ctx context.Context, body domain.CreateImageRequest) (*domain.Item, error) {
	const op = "create image"

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(imagesPath)
	if err != nil {
		return nil, &domain.NetworkError{Op: op, Err: err}
	}
	if err := checkStatus(op, resp); err != nil {
		return nil, err
	}

	var dto imageDTO
	if err := json.Unmarshal(resp.Body(), &dto); err != nil {
		return nil, &domain.ParseError{Op: op, Err: err}
	}
	if dto.ID == "" {
		return nil, &domain.ParseError{Op: op, Err: errors.New(`missing "id" field`)}
	}

	item := dto.toItem()
	logger.CtxInfo(logger.WithField(ctx, logger.FieldImageID, item.ID), "Image record created")
	return &item, nil
}

func checkStatus(op string, resp *resty.Response) error {
	if resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	if body == "" {
		body = resp.Status()
	}
	return &domain.NetworkError{
		Op:         op,
		StatusCode: resp.StatusCode(),
		Err:        fmt.Errorf("%s", body),
	}
}
