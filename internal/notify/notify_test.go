package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/timmy/gallery/internal/domain"
)

func TestWriterNotifierAndMulti(t *testing.T) {
	var buf bytes.Buffer
	rec := &Recorder{}
	n := Multi{NewWriterNotifier(&buf), rec, Discard, LogNotifier{}}

	n.Notify(context.Background(), domain.Notification{
		Level:   domain.NotificationSuccess,
		Title:   "Image registered",
		Message: "Your image was registered",
	})

	assert.Equal(t, "[success] Image registered: Your image was registered\n", buf.String())
	assert.Equal(t, []domain.NotificationLevel{domain.NotificationSuccess}, rec.Levels())
}
