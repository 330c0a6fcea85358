package gallery

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/gallery/internal/api"
	"github.com/timmy/gallery/internal/client"
	"github.com/timmy/gallery/internal/config"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/notify"
	"github.com/timmy/gallery/internal/repository"
	"github.com/timmy/gallery/internal/storage"
	"github.com/timmy/gallery/internal/upload"
)

// memObjects is an in-memory object store.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memObjects) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return nil
}

func (m *memObjects) GetURL(key string) string {
	return "https://cdn.example.com/" + key
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type harness struct {
	session  *Session
	recorder *notify.Recorder
	store    *repository.MemoryImageRepository
	server   *httptest.Server
}

func newHarness(t *testing.T, seeded int, policy upload.FailurePolicy) *harness {
	t.Helper()
	store := repository.NewMemoryImageRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < seeded; i++ {
		require.NoError(t, store.Create(context.Background(), &domain.Image{
			ID:          fmt.Sprintf("seed-%02d", i),
			Title:       fmt.Sprintf("seed %d", i),
			Description: "seeded",
			URL:         fmt.Sprintf("https://cdn.example.com/seed-%d.png", i),
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}

	router := api.SetupRouter(store, &config.ServerConfig{Mode: "test", PageSize: 6}, nil)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	images := client.NewImageClient(&client.Config{BaseURL: server.URL, Timeout: 5 * time.Second})
	blobs := storage.NewBlobStore(&memObjects{}, "uploads")
	rec := &notify.Recorder{}

	return &harness{
		session:  NewSession(images, blobs, images, &Options{Notifier: rec, FailurePolicy: policy}),
		recorder: rec,
		store:    store,
		server:   server,
	}
}

func itemIDs(items []domain.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func TestSessionLoadsAllPages(t *testing.T) {
	h := newHarness(t, 14, "")
	ctx := context.Background()

	require.NoError(t, h.session.Load(ctx))
	assert.Len(t, h.session.Items(), 6)
	assert.True(t, h.session.HasMore())

	appended, err := h.session.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, appended)
	appended, err = h.session.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, appended)
	assert.Len(t, h.session.Items(), 14)
	assert.False(t, h.session.HasMore())

	appended, err = h.session.LoadMore(ctx)
	assert.NoError(t, err)
	assert.False(t, appended)
	assert.Empty(t, h.recorder.All())

	items := h.session.Items()
	assert.Equal(t, "seed-13", items[0].ID)
	assert.Equal(t, "seed-00", items[len(items)-1].ID)
}

func TestSessionSubmitPutsNewImageFirst(t *testing.T) {
	h := newHarness(t, 8, "")
	ctx := context.Background()

	require.NoError(t, h.session.Load(ctx))
	_, err := h.session.LoadMore(ctx)
	require.NoError(t, err)
	require.Len(t, h.session.Items(), 8)

	p := h.session.Upload()
	p.SetFile(&domain.File{Name: "cat.png", ContentType: "image/png", Size: int64(len(pngHeader)), Data: pngHeader})
	url, err := p.UploadFile(ctx)
	require.NoError(t, err)
	assert.Contains(t, url, "https://cdn.example.com/uploads/")
	p.SetTitle("My cat")
	p.SetDescription("Sleeping on the keyboard")

	item, err := h.session.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, url, item.URL)

	// Invalidation dropped the second page and refetched the first.
	items := h.session.Items()
	require.Len(t, items, 6)
	assert.Equal(t, item.ID, items[0].ID)
	assert.Equal(t, "My cat", items[0].Title)
	assert.True(t, h.session.HasMore())

	assert.Equal(t, domain.UploadDraft{}, p.Draft())
	assert.Equal(t, []domain.NotificationLevel{domain.NotificationSuccess}, h.recorder.Levels())
}

func TestSessionSubmitWithoutUploadIsRejected(t *testing.T) {
	h := newHarness(t, 1, "")
	p := h.session.Upload()
	p.SetFile(&domain.File{Name: "cat.png", ContentType: "image/png", Size: 10, Data: pngHeader})
	p.SetTitle("My cat")
	p.SetDescription("Sleeping")

	_, err := h.session.Submit(context.Background())
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.MissingRemote)
	assert.NotNil(t, p.Draft().File)
}

func TestSessionReportsListFailure(t *testing.T) {
	h := newHarness(t, 3, "")
	h.server.Close()

	err := h.session.Load(context.Background())
	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, []domain.NotificationLevel{domain.NotificationError}, h.recorder.Levels())
	assert.Equal(t, domain.CacheStatusError, h.session.Cache().State().Status)
}

func TestSessionFailedSubmitHonoursPolicy(t *testing.T) {
	for _, tc := range []struct {
		policy    upload.FailurePolicy
		keepTitle bool
	}{
		{upload.ClearOnFailure, false},
		{upload.PreserveOnFailure, true},
	} {
		t.Run(string(tc.policy), func(t *testing.T) {
			h := newHarness(t, 1, tc.policy)
			ctx := context.Background()
			p := h.session.Upload()
			p.SetFile(&domain.File{Name: "a.gif", ContentType: "image/gif", Size: 6, Data: []byte("GIF89a")})
			_, err := p.UploadFile(ctx)
			require.NoError(t, err)
			p.SetTitle("Party")
			p.SetDescription("Confetti")

			h.server.Close()
			_, err = h.session.Submit(ctx)
			var serr *domain.SubmitError
			require.ErrorAs(t, err, &serr)

			if tc.keepTitle {
				assert.Equal(t, "Party", p.Draft().Title)
				assert.NotEmpty(t, p.Draft().RemoteURL)
			} else {
				assert.Equal(t, domain.UploadDraft{}, p.Draft())
			}
		})
	}
}

func TestSessionContextCarriesSessionID(t *testing.T) {
	s := NewSession(nil, nil, nil, nil)
	ctx := s.Context(context.Background())
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, s.ID(), logger.GetSessionID(ctx))
}

func TestNewSessionDefaultsToClearPolicy(t *testing.T) {
	s := NewSession(nil, nil, nil, &Options{})
	assert.Equal(t, upload.ClearOnFailure, s.Upload().Policy())
	s.Close()
	assert.Equal(t, domain.UploadDraft{}, s.Upload().Draft())
}
