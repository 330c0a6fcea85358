// Package pagecache keeps the pages of a cursor-paginated image list in fetch
// order and guarantees at most one in-flight request per cursor.
package pagecache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads one page of images. An empty cursor requests the first page.
type Fetcher interface {
	ListImages(ctx context.Context, cursor string) (*domain.Page, error)
}

// Option configures a PageCache.
type Option func(*PageCache)

// WithDedupe makes Flatten drop items whose ID was already seen on an earlier page.
func WithDedupe(enabled bool) Option {
	return func(c *PageCache) {
		c.dedupe = enabled
	}
}

// State is a point-in-time snapshot of the cache.
type State struct {
	Status     domain.CacheStatus
	LastCursor string // empty when the first page was requested last
	Pages      int
	Generation uint64
	Err        error
}

// PageCache is the pagination controller for the image list.
//
// Pages are only ever appended, each next-page fetch follows the cursor of
// the current tail page, and every Reset starts a new generation so fetches
// issued before it cannot touch the new page sequence.
type PageCache struct {
	fetcher Fetcher
	dedupe  bool
	group   singleflight.Group

	mu         sync.RWMutex
	pages      []domain.Page
	status     domain.CacheStatus
	lastCursor string
	lastErr    error
	generation uint64
	pending    map[string]*pendingFetch
}

// pendingFetch counts the callers waiting on one flight.
type pendingFetch struct {
	status  domain.CacheStatus
	refs    int
	settled bool
}

// New creates an empty cache backed by fetcher.
func New(fetcher Fetcher, opts ...Option) *PageCache {
	c := &PageCache{
		fetcher: fetcher,
		status:  domain.CacheStatusIdle,
		pending: make(map[string]*pendingFetch),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchFirst requests the first page and replaces the page sequence with it.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *domain.Page: the first page.
//   - error: *domain.NetworkError, *domain.ParseError, or domain.ErrStaleFetch
//     when a Reset happened while the request was in flight.
func (c *PageCache) FetchFirst(ctx context.Context) (*domain.Page, error) {
	c.mu.Lock()
	gen := c.generation
	key := flightKey(gen, "")
	f := c.begin(key, domain.CacheStatusFetchingFirst, "")
	c.mu.Unlock()

	return c.run(ctx, gen, f, key, "", true)
}

// FetchNext requests the page after the current tail page and appends it.
// Concurrent callers for the same cursor share a single request.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *domain.Page: the appended page.
//   - error: domain.ErrNoMoreData without any request when there is no next
//     cursor; otherwise the same errors as FetchFirst.
func (c *PageCache) FetchNext(ctx context.Context) (*domain.Page, error) {
	c.mu.Lock()
	if !c.hasMoreLocked() {
		c.mu.Unlock()
		return nil, domain.ErrNoMoreData
	}
	cursor := c.pages[len(c.pages)-1].NextCursor
	gen := c.generation
	key := flightKey(gen, cursor)
	f := c.begin(key, domain.CacheStatusFetchingNext, cursor)
	c.mu.Unlock()

	return c.run(ctx, gen, f, key, cursor, false)
}

// Flatten returns all fetched items in fetch order. It never blocks on a
// running fetch and returns what has settled so far.
func (c *PageCache) Flatten() []domain.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, p := range c.pages {
		total += len(p.Items)
	}

	items := make([]domain.Item, 0, total)
	var seen map[string]struct{}
	if c.dedupe {
		seen = make(map[string]struct{}, total)
	}
	for _, p := range c.pages {
		for _, item := range p.Items {
			if seen != nil {
				if _, dup := seen[item.ID]; dup {
					continue
				}
				seen[item.ID] = struct{}{}
			}
			items = append(items, item)
		}
	}
	return items
}

// HasMore reports whether the tail page carries a next cursor.
// It is false before the first page has been fetched.
func (c *PageCache) HasMore() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasMoreLocked()
}

func (c *PageCache) hasMoreLocked() bool {
	return len(c.pages) > 0 && c.pages[len(c.pages)-1].HasNext()
}

// Reset drops every page and cursor. Fetches still in flight settle as
// domain.ErrStaleFetch and leave the cache untouched.
func (c *PageCache) Reset() {
	c.mu.Lock()
	c.generation++
	c.pages = nil
	c.lastCursor = ""
	c.lastErr = nil
	c.status = domain.CacheStatusIdle
	c.pending = make(map[string]*pendingFetch)
	gen := c.generation
	c.mu.Unlock()

	logger.GetDefault().WithField(logger.FieldGeneration, gen).Debug("Page cache reset")
}

// Invalidate resets the cache and fetches the first page again.
func (c *PageCache) Invalidate(ctx context.Context) error {
	c.Reset()
	_, err := c.FetchFirst(ctx)
	return err
}

// State returns a snapshot of the cache.
func (c *PageCache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		Status:     c.status,
		LastCursor: c.lastCursor,
		Pages:      len(c.pages),
		Generation: c.generation,
		Err:        c.lastErr,
	}
}

func flightKey(gen uint64, cursor string) string {
	return fmt.Sprintf("%d/%s", gen, cursor)
}

// begin must be called with c.mu held.
func (c *PageCache) begin(key string, status domain.CacheStatus, cursor string) *pendingFetch {
	f, ok := c.pending[key]
	if !ok || f.settled {
		f = &pendingFetch{status: status}
		c.pending[key] = f
	}
	f.refs++
	c.status = status
	c.lastCursor = cursor
	return f
}

// run joins or starts the flight for key. The shared request is detached
// from any single caller's cancellation; a caller whose ctx ends stops
// waiting while the flight keeps going for the others.
func (c *PageCache) run(ctx context.Context, gen uint64, f *pendingFetch, key, cursor string, first bool) (*domain.Page, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		start := time.Now()
		page, err := c.fetcher.ListImages(flightCtx, cursor)
		page, err = c.settle(gen, f, cursor, first, page, err)

		entry := logger.With(logger.Fields{
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
			logger.FieldGeneration: gen,
		})
		logCtx := logger.WithField(flightCtx, logger.FieldCursor, cursor)
		if err != nil {
			entry.Warn(logCtx, "Page fetch settled with error: %v", err)
		} else {
			entry.WithCount(len(page.Items)).Debug(logCtx, "Page fetch settled")
		}
		return page, err
	})

	select {
	case res := <-ch:
		c.release(gen, f, key)
		if res.Shared {
			logger.CtxDebug(logger.WithField(ctx, logger.FieldCursor, cursor), "Page fetch coalesced")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Page), nil
	case <-ctx.Done():
		go func() {
			<-ch
			c.release(gen, f, key)
		}()
		return nil, ctx.Err()
	}
}

func (c *PageCache) settle(gen uint64, f *pendingFetch, cursor string, first bool, page *domain.Page, fetchErr error) (*domain.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.settled = true

	if gen != c.generation {
		return nil, domain.ErrStaleFetch
	}

	if fetchErr != nil {
		c.status = domain.CacheStatusError
		c.lastErr = fetchErr
		return nil, fetchErr
	}

	if first {
		c.pages = []domain.Page{*page}
	} else {
		if len(c.pages) == 0 || c.pages[len(c.pages)-1].NextCursor != cursor {
			c.status = c.pendingStatus()
			return nil, domain.ErrStaleFetch
		}
		c.pages = append(c.pages, *page)
	}

	c.lastErr = nil
	c.status = c.pendingStatus()
	return page, nil
}

// release drops the caller's hold on a flight.
func (c *PageCache) release(gen uint64, f *pendingFetch, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.refs--
	if gen != c.generation {
		return
	}
	if f.refs <= 0 && c.pending[key] == f {
		delete(c.pending, key)
	}
	if c.status != domain.CacheStatusError {
		c.status = c.pendingStatus()
	}
}

// pendingStatus derives the status from fetches still in flight.
func (c *PageCache) pendingStatus() domain.CacheStatus {
	status := domain.CacheStatusIdle
	for _, f := range c.pending {
		if f.settled {
			continue
		}
		if f.status == domain.CacheStatusFetchingFirst {
			return f.status
		}
		status = f.status
	}
	return status
}
