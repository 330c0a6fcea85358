package pagecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/gallery/internal/domain"
)

// scriptedFetcher serves pages keyed by cursor and counts requests per cursor.
type scriptedFetcher struct {
	mu      sync.Mutex
	pages   map[string]*domain.Page
	errs    map[string]error
	calls   map[string]int
	gate    chan struct{} // when set, every call blocks until it is closed
	started chan string
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		pages:   map[string]*domain.Page{},
		errs:    map[string]error{},
		calls:   map[string]int{},
		started: make(chan string, 16),
	}
}

func (f *scriptedFetcher) ListImages(ctx context.Context, cursor string) (*domain.Page, error) {
	f.mu.Lock()
	f.calls[cursor]++
	gate := f.gate
	page, err := f.pages[cursor], f.errs[cursor]
	f.mu.Unlock()

	f.started <- cursor
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("no page scripted for cursor %q", cursor)
	}
	return page, nil
}

func (f *scriptedFetcher) callCount(cursor string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[cursor]
}

func (f *scriptedFetcher) setGate(gate chan struct{}) {
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
}

func item(id string) domain.Item {
	return domain.Item{ID: id, Title: "title " + id}
}

func ids(items []domain.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestFetchFirstThenNext(t *testing.T) {
	f := newScriptedFetcher()
	f.pages[""] = &domain.Page{Items: []domain.Item{item("1")}, NextCursor: "c1"}
	f.pages["c1"] = &domain.Page{Items: []domain.Item{item("2")}}
	c := New(f)
	ctx := context.Background()

	assert.False(t, c.HasMore(), "no pages yet")

	_, err := c.FetchFirst(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(c.Flatten()))
	assert.True(t, c.HasMore())

	_, err = c.FetchNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(c.Flatten()))
	assert.False(t, c.HasMore())

	state := c.State()
	assert.Equal(t, domain.CacheStatusIdle, state.Status)
	assert.Equal(t, "c1", state.LastCursor)
	assert.Equal(t, 2, state.Pages)
}

func TestFlattenFollowsFetchOrder(t *testing.T) {
	const n = 5
	f := newScriptedFetcher()
	var want []string
	for i := 0; i < n; i++ {
		cursor := ""
		if i > 0 {
			cursor = fmt.Sprintf("c%d", i)
		}
		next := ""
		if i < n-1 {
			next = fmt.Sprintf("c%d", i+1)
		}
		a, b := fmt.Sprintf("%d-a", i), fmt.Sprintf("%d-b", i)
		f.pages[cursor] = &domain.Page{Items: []domain.Item{item(a), item(b)}, NextCursor: next}
		want = append(want, a, b)
	}

	c := New(f)
	ctx := context.Background()
	_, err := c.FetchFirst(ctx)
	require.NoError(t, err)
	for i := 1; i < n; i++ {
		_, err := c.FetchNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, want[:2*(i+1)], ids(c.Flatten()))
	}
	assert.False(t, c.HasMore())
}

func TestFetchNextWithoutCursorIsNoop(t *testing.T) {
	f := newScriptedFetcher()
	f.pages[""] = &domain.Page{Items: []domain.Item{item("1")}}
	c := New(f)

	_, err := c.FetchNext(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoMoreData, "before any page")

	_, err = c.FetchFirst(context.Background())
	require.NoError(t, err)

	_, err = c.FetchNext(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoMoreData)
	assert.Equal(t, 1, f.callCount(""))
	assert.Len(t, f.calls, 1)
	assert.Equal(t, domain.CacheStatusIdle, c.State().Status)
}

func TestConcurrentFetchNextCoalesces(t *testing.T) {
	f := newScriptedFetcher()
	f.pages[""] = &domain.Page{Items: []domain.Item{item("1")}, NextCursor: "c1"}
	f.pages["c1"] = &domain.Page{Items: []domain.Item{item("2")}}
	c := New(f)
	ctx := context.Background()

	_, err := c.FetchFirst(ctx)
	require.NoError(t, err)
	<-f.started

	gate := make(chan struct{})
	f.setGate(gate)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = c.FetchNext(ctx)
		}(i)
	}

	assert.Equal(t, "c1", <-f.started)
	assert.Equal(t, domain.CacheStatusFetchingNext, c.State().Status)
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, f.callCount("c1"))
	for _, err := range results {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrNoMoreData)
		}
	}
	assert.Equal(t, []string{"1", "2"}, ids(c.Flatten()))
}

func TestCancelledCallerDoesNotAbortSharedFetch(t *testing.T) {
	f := newScriptedFetcher()
	f.pages[""] = &domain.Page{Items: []domain.Item{item("1")}, NextCursor: "c1"}
	f.pages["c1"] = &domain.Page{Items: []domain.Item{item("2")}}
	c := New(f)

	_, err := c.FetchFirst(context.Background())
	require.NoError(t, err)
	<-f.started

	gate := make(chan struct{})
	f.setGate(gate)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.FetchNext(ctxA)
		errA <- err
	}()
	assert.Equal(t, "c1", <-f.started)

	errB := make(chan error, 1)
	go func() {
		_, err := c.FetchNext(context.Background())
		errB <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)
	assert.Equal(t, domain.CacheStatusFetchingNext, c.State().Status)

	close(gate)
	require.NoError(t, <-errB)
	assert.Equal(t, 1, f.callCount("c1"))
	assert.Equal(t, []string{"1", "2"}, ids(c.Flatten()))
	assert.Eventually(t, func() bool {
		return c.State().Status == domain.CacheStatusIdle
	}, time.Second, 10*time.Millisecond)
	assert.NoError(t, c.State().Err)
}

func TestErrorsAreNotSticky(t *testing.T) {
	f := newScriptedFetcher()
	netErr := &domain.NetworkError{Op: "list images", Err: errors.New("connection refused")}
	f.errs[""] = netErr
	c := New(f)
	ctx := context.Background()

	_, err := c.FetchFirst(ctx)
	var got *domain.NetworkError
	require.True(t, errors.As(err, &got))
	state := c.State()
	assert.Equal(t, domain.CacheStatusError, state.Status)
	assert.Equal(t, netErr, state.Err)
	assert.Empty(t, c.Flatten())

	f.mu.Lock()
	delete(f.errs, "")
	f.pages[""] = &domain.Page{Items: []domain.Item{item("1")}}
	f.mu.Unlock()

	_, err = c.FetchFirst(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CacheStatusIdle, c.State().Status)
	assert.NoError(t, c.State().Err)
	assert.Equal(t, 2, f.callCount(""), "no automatic retries")
}

func TestFailedNextKeepsPages(t *testing.T) {
	f := newScriptedFetcher()
	f.pages[""] = &domain.Page{Items: []domain.Item{item("1")}, NextCursor: "c1"}
	f.errs["c1"] = &domain.ParseError{Op: "list images", Err: errors.New(`missing "data" field`)}
	c := New(f)
	ctx := context.Background()

	_, err := c.FetchFirst(ctx)
	require.NoError(t, err)

	_, err = c.FetchNext(ctx)
	var parseErr *domain.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, []string{"1"}, ids(c.Flatten()))
	assert.True(t, c.HasMore(), "caller may retry the same cursor")
}

func TestResetDiscardsInFlightFetch(t *testing.T) {
	f := newScriptedFetcher()
	f.pages[""] = &domain.Page{Items: []domain.Item{item("1")}, NextCursor: "c1"}
	f.pages["c1"] = &domain.Page{Items: []domain.Item{item("old-2")}}
	c := New(f)
	ctx := context.Background()

	_, err := c.FetchFirst(ctx)
	require.NoError(t, err)
	<-f.started

	gate := make(chan struct{})
	f.setGate(gate)

	done := make(chan error, 1)
	go func() {
		_, err := c.FetchNext(ctx)
		done <- err
	}()
	assert.Equal(t, "c1", <-f.started)

	c.Reset()
	assert.Empty(t, c.Flatten())
	assert.False(t, c.HasMore())

	f.mu.Lock()
	f.pages[""] = &domain.Page{Items: []domain.Item{item("new"), item("1")}}
	f.mu.Unlock()

	close(gate)
	assert.ErrorIs(t, <-done, domain.ErrStaleFetch)

	f.setGate(nil)
	_, err = c.FetchFirst(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "1"}, ids(c.Flatten()))
}

func TestFetchFirstDiscardsOlderNextPage(t *testing.T) {
	f := newScriptedFetcher()
	f.pages[""] = &domain.Page{Items: []domain.Item{item("1")}, NextCursor: "c1"}
	f.pages["c1"] = &domain.Page{Items: []domain.Item{item("2")}}
	c := New(f)
	ctx := context.Background()

	_, err := c.FetchFirst(ctx)
	require.NoError(t, err)
	<-f.started

	gate := make(chan struct{})
	f.setGate(gate)
	done := make(chan error, 1)
	go func() {
		_, err := c.FetchNext(ctx)
		done <- err
	}()
	assert.Equal(t, "c1", <-f.started)

	f.mu.Lock()
	f.pages[""] = &domain.Page{Items: []domain.Item{item("0"), item("1")}, NextCursor: "c9"}
	f.mu.Unlock()

	first := make(chan error, 1)
	go func() {
		_, err := c.FetchFirst(ctx)
		first <- err
	}()
	assert.Equal(t, "", <-f.started)
	close(gate)

	require.NoError(t, <-first)
	// The next page either landed before the first page replaced the
	// sequence, or settled against a different tail cursor and was dropped.
	if nextErr := <-done; nextErr != nil {
		assert.ErrorIs(t, nextErr, domain.ErrStaleFetch)
	}
	assert.Equal(t, []string{"0", "1"}, ids(c.Flatten()))
	assert.True(t, c.HasMore())
	assert.Equal(t, domain.CacheStatusIdle, c.State().Status)
}

func TestInvalidateRefetchesFromStart(t *testing.T) {
	f := newScriptedFetcher()
	f.pages[""] = &domain.Page{Items: []domain.Item{item("1")}, NextCursor: "c1"}
	f.pages["c1"] = &domain.Page{Items: []domain.Item{item("2")}}
	c := New(f)
	ctx := context.Background()

	_, err := c.FetchFirst(ctx)
	require.NoError(t, err)
	_, err = c.FetchNext(ctx)
	require.NoError(t, err)
	gen := c.State().Generation

	f.mu.Lock()
	f.pages[""] = &domain.Page{Items: []domain.Item{item("3"), item("1")}, NextCursor: "c1"}
	f.mu.Unlock()

	require.NoError(t, c.Invalidate(ctx))
	assert.Equal(t, []string{"3", "1"}, ids(c.Flatten()))
	assert.Equal(t, gen+1, c.State().Generation)
	assert.Equal(t, 1, c.State().Pages)
}

func TestDedupe(t *testing.T) {
	f := newScriptedFetcher()
	f.pages[""] = &domain.Page{Items: []domain.Item{item("1"), item("2")}, NextCursor: "c1"}
	f.pages["c1"] = &domain.Page{Items: []domain.Item{item("2"), item("3")}}
	ctx := context.Background()

	plain := New(f)
	_, err := plain.FetchFirst(ctx)
	require.NoError(t, err)
	_, err = plain.FetchNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "2", "3"}, ids(plain.Flatten()))

	deduped := New(f, WithDedupe(true))
	_, err = deduped.FetchFirst(ctx)
	require.NoError(t, err)
	_, err = deduped.FetchNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids(deduped.Flatten()))
}

func TestFlattenDuringFetch(t *testing.T) {
	f := newScriptedFetcher()
	f.pages[""] = &domain.Page{Items: []domain.Item{item("1")}, NextCursor: "c1"}
	f.pages["c1"] = &domain.Page{Items: []domain.Item{item("2")}}
	c := New(f)
	ctx := context.Background()

	_, err := c.FetchFirst(ctx)
	require.NoError(t, err)
	<-f.started

	gate := make(chan struct{})
	f.setGate(gate)
	var settled atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.FetchNext(ctx)
		settled.Store(true)
	}()
	<-f.started

	assert.False(t, settled.Load())
	assert.Equal(t, []string{"1"}, ids(c.Flatten()))
	close(gate)
	<-done
	assert.Equal(t, []string{"1", "2"}, ids(c.Flatten()))
}
