// Package gallery ties the image list and the upload form of one user
// session together.
package gallery

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/notify"
	"github.com/timmy/gallery/internal/pagecache"
	"github.com/timmy/gallery/internal/upload"
)

// Options configures a Session.
type Options struct {
	Notifier      notify.Notifier
	DedupeItems   bool
	FailurePolicy upload.FailurePolicy
}

// Session owns one PageCache and one upload Pipeline. A successful submit
// invalidates the cache; the cache never reaches back into the pipeline.
type Session struct {
	id       string
	notifier notify.Notifier
	cache    *pagecache.PageCache
	pipeline *upload.Pipeline
}

// NewSession wires a cache and pipeline over the given collaborators.
// Parameters:
//   - fetcher: list endpoint.
//   - blobs: blob store for file uploads.
//   - creator: create-record endpoint.
//   - opts: notifier, dedupe and failure policy; nil uses defaults.
// Returns:
//   - *Session: ready session with an empty list and draft.
func NewSession(fetcher pagecache.Fetcher, blobs upload.BlobStore, creator upload.Creator, opts *Options) *Session {
	if opts == nil {
		opts = &Options{}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}

	cache := pagecache.New(fetcher, pagecache.WithDedupe(opts.DedupeItems))
	pipeline := upload.NewPipeline(blobs, creator, &upload.Options{
		Notifier:      notifier,
		Invalidator:   cache,
		FailurePolicy: opts.FailurePolicy,
	})

	return &Session{
		id:       uuid.New().String(),
		notifier: notifier,
		cache:    cache,
		pipeline: pipeline,
	}
}

// ID returns the session identifier attached to every log line.
func (s *Session) ID() string { return s.id }

// Context returns ctx carrying the session's logging fields.
func (s *Session) Context(ctx context.Context) context.Context {
	ctx = logger.SetSessionID(ctx, s.id)
	return logger.SetComponent(ctx, "gallery")
}

// Cache exposes the underlying page cache.
func (s *Session) Cache() *pagecache.PageCache { return s.cache }

// Upload exposes the upload pipeline.
func (s *Session) Upload() *upload.Pipeline { return s.pipeline }

// Load fetches the first page, replacing whatever was shown.
func (s *Session) Load(ctx context.Context) error {
	ctx = s.Context(ctx)
	_, err := s.cache.FetchFirst(ctx)
	return s.settle(ctx, err)
}

// LoadMore fetches the next page. Reaching the end of the list is not an error.
// Returns:
//   - bool: true if a page was appended.
//   - error: fetch failure, already reported to the notifier.
func (s *Session) LoadMore(ctx context.Context) (bool, error) {
	ctx = s.Context(ctx)
	_, err := s.cache.FetchNext(ctx)
	if errors.Is(err, domain.ErrNoMoreData) {
		return false, nil
	}
	if err := s.settle(ctx, err); err != nil {
		return false, err
	}
	return err == nil, nil
}

// Items returns every loaded item in display order.
func (s *Session) Items() []domain.Item { return s.cache.Flatten() }

// HasMore reports whether another page can be requested.
func (s *Session) HasMore() bool { return s.cache.HasMore() }

// Submit runs the upload pipeline's submit under the session context.
func (s *Session) Submit(ctx context.Context) (*domain.Item, error) {
	return s.pipeline.Submit(s.Context(ctx))
}

// Close discards the draft.
func (s *Session) Close() { s.pipeline.Close() }

// settle reports list failures. Stale fetches were superseded by a newer
// request and are dropped silently.
func (s *Session) settle(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, domain.ErrStaleFetch) {
		return nil
	}
	logger.CtxWarn(ctx, "Image list fetch failed: %v", err)
	s.notifier.Notify(ctx, domain.Notification{
		Level:   domain.NotificationError,
		Title:   "Couldn't load images",
		Message: err.Error(),
	})
	return err
}
