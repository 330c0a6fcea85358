// Package notify delivers user-visible notifications when gallery operations settle.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
)

// Notifier surfaces a settled outcome to the user.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n domain.Notification)

func (f Func) Notify(ctx context.Context, n domain.Notification) { f(ctx, n) }

// Discard drops every notification.
var Discard Notifier = Func(func(context.Context, domain.Notification) {})

// LogNotifier writes notifications to the context logger.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n domain.Notification) {
	log := logger.FromContext(ctx).WithFields(logger.Fields{
		"notification": string(n.Level),
		"title":        n.Title,
	})
	switch n.Level {
	case domain.NotificationError:
		log.Warn(n.Message)
	default:
		log.Info(n.Message)
	}
}

// WriterNotifier prints notifications as single lines, e.g. to a terminal.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(_ context.Context, note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "[%s] %s: %s\n", note.Level, note.Title, note.Message)
}

// Multi fans a notification out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n domain.Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func (r *Recorder) Notify(_ context.Context, n domain.Notification) {
	r.mu.Lock()
	r.notes = append(r.notes, n)
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.notes...)
}

// Levels returns the level of each recorded notification, oldest first.
func (r *Recorder) Levels() []domain.NotificationLevel {
	all := r.All()
	levels := make([]domain.NotificationLevel, len(all))
	for i, n := range all {
		levels[i] = n.Level
	}
	return levels
}
