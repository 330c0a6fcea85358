// Package upload validates a new gallery image and submits it in two phases:
// the binary goes to the blob store, then the metadata record is created.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/notify"
)

// ErrSubmitInProgress is returned when Submit is called while another submit is running.
var ErrSubmitInProgress = errors.New("submit already in progress")

// errUploadSuperseded is returned when the draft changed while its file was uploading.
var errUploadSuperseded = errors.New("draft changed during upload")

// BlobStore stores the selected file and returns its URL.
type BlobStore interface {
	Upload(ctx context.Context, file *domain.File) (string, error)
}

// Creator creates the image record.
type Creator interface {
	CreateImage(ctx context.Context, body domain.CreateImageRequest) (*domain.Item, error)
}

// Invalidator is told to drop and refetch the image list after a successful submit.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// FailurePolicy decides what happens to the draft when the create call fails.
type FailurePolicy string

const (
	// ClearOnFailure resets the draft even when submit fails. Typed text is lost.
	ClearOnFailure FailurePolicy = "clear"

	// PreserveOnFailure keeps the text fields and uploaded URL so the user can retry.
	PreserveOnFailure FailurePolicy = "preserve"
)

// ParseFailurePolicy maps a config value to a FailurePolicy. Empty means ClearOnFailure.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", ClearOnFailure:
		return ClearOnFailure, nil
	case PreserveOnFailure:
		return PreserveOnFailure, nil
	default:
		return "", fmt.Errorf("unknown submit failure policy %q", s)
	}
}

// Options holds the optional collaborators of a Pipeline.
type Options struct {
	Notifier      notify.Notifier
	Invalidator   Invalidator
	FailurePolicy FailurePolicy
}

// Pipeline owns one upload draft.
type Pipeline struct {
	blobs       BlobStore
	creator     Creator
	notifier    notify.Notifier
	invalidator Invalidator
	policy      FailurePolicy

	mu         sync.Mutex
	draft      domain.UploadDraft
	version    uint64 // bumped whenever the file changes or the draft is reset
	submitting bool
}

// NewPipeline creates a pipeline with an empty draft.
// Parameters:
//   - blobs: blob store for the file upload phase.
//   - creator: create-record endpoint.
//   - opts: notifier, invalidator and failure policy; nil uses defaults.
// Returns:
//   - *Pipeline: ready pipeline.
func NewPipeline(blobs BlobStore, creator Creator, opts *Options) *Pipeline {
	if opts == nil {
		opts = &Options{}
	}
	p := &Pipeline{
		blobs:       blobs,
		creator:     creator,
		notifier:    opts.Notifier,
		invalidator: opts.Invalidator,
		policy:      opts.FailurePolicy,
	}
	if p.notifier == nil {
		p.notifier = notify.Discard
	}
	if p.policy == "" {
		p.policy = ClearOnFailure
	}
	return p
}

// Draft returns a copy of the current draft.
func (p *Pipeline) Draft() domain.UploadDraft {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft.Clone()
}

// Policy returns the configured failure policy.
func (p *Pipeline) Policy() FailurePolicy {
	return p.policy
}

// SetFile selects a new file. Any URL from a previous upload is dropped.
func (p *Pipeline) SetFile(file *domain.File) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draft.File = file
	p.draft.RemoteURL = ""
	p.version++
}

func (p *Pipeline) SetTitle(title string) {
	p.mu.Lock()
	p.draft.Title = title
	p.mu.Unlock()
}

func (p *Pipeline) SetDescription(description string) {
	p.mu.Lock()
	p.draft.Description = description
	p.mu.Unlock()
}

// AttachRemote records the URL returned by a successful blob upload.
func (p *Pipeline) AttachRemote(url string) {
	p.mu.Lock()
	p.draft.RemoteURL = url
	p.mu.Unlock()
}

// UploadFile validates the selected file, stores it and attaches the returned URL.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - string: URL of the stored blob.
//   - error: *domain.ValidationError if the file rules fail, *domain.UploadError
//     if the blob store fails or the draft changed while uploading.
func (p *Pipeline) UploadFile(ctx context.Context) (string, error) {
	p.mu.Lock()
	file := p.draft.File
	version := p.version
	if fe, failed := ValidateFile(file); failed {
		if p.draft.FieldErrors == nil {
			p.draft.FieldErrors = domain.FieldErrors{}
		}
		p.draft.FieldErrors[domain.FieldFile] = fe
		p.mu.Unlock()
		return "", &domain.ValidationError{Fields: domain.FieldErrors{domain.FieldFile: fe}}
	}
	delete(p.draft.FieldErrors, domain.FieldFile)
	p.mu.Unlock()

	url, err := p.blobs.Upload(ctx, file)
	if err != nil {
		uploadErr := &domain.UploadError{Err: err}
		logger.FromContext(ctx).WithError(err).Warn("Image upload failed")
		p.notifier.Notify(ctx, domain.Notification{
			Level:   domain.NotificationError,
			Title:   "Upload failed",
			Message: "The image could not be uploaded. Please try again.",
		})
		return "", uploadErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.version != version {
		return "", &domain.UploadError{Err: errUploadSuperseded}
	}
	p.draft.RemoteURL = url
	return url, nil
}

// Submit validates the draft and creates the image record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *domain.Item: the created record.
//   - error: *domain.ValidationError when a field rule fails or no file has
//     been uploaded yet; *domain.SubmitError when the create call fails;
//     ErrSubmitInProgress for overlapping calls.
func (p *Pipeline) Submit(ctx context.Context) (*domain.Item, error) {
	p.mu.Lock()
	if p.submitting {
		p.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	fieldErrs := Validate(p.draft)
	p.draft.FieldErrors = fieldErrs
	draft := p.draft.Clone()
	if len(fieldErrs) == 0 && draft.RemoteURL != "" {
		p.submitting = true
	}
	p.mu.Unlock()

	if len(fieldErrs) > 0 {
		return nil, &domain.ValidationError{Fields: fieldErrs}
	}
	if draft.RemoteURL == "" {
		p.notifier.Notify(ctx, domain.Notification{
			Level:   domain.NotificationError,
			Title:   "Image not added",
			Message: "Add an image and wait for its upload to finish before submitting.",
		})
		return nil, &domain.ValidationError{Fields: domain.FieldErrors{}, MissingRemote: true}
	}

	defer func() {
		p.mu.Lock()
		p.submitting = false
		p.mu.Unlock()
	}()

	item, err := p.creator.CreateImage(ctx, domain.CreateImageRequest{
		URL:         draft.RemoteURL,
		Title:       draft.Title,
		Description: draft.Description,
	})
	if err != nil {
		logger.FromContext(ctx).WithField(logger.FieldURL, draft.RemoteURL).WithError(err).
			Warn("Image registration failed, uploaded blob is orphaned")
		p.notifier.Notify(ctx, domain.Notification{
			Level:   domain.NotificationError,
			Title:   "Registration failed",
			Message: "An error occurred while registering your image.",
		})
		if p.policy == ClearOnFailure {
			p.ResetDraft()
		}
		return nil, &domain.SubmitError{Err: err}
	}

	p.notifier.Notify(ctx, domain.Notification{
		Level:   domain.NotificationSuccess,
		Title:   "Image registered",
		Message: "Your image was registered successfully.",
	})
	p.ResetDraft()

	if p.invalidator != nil {
		if err := p.invalidator.Invalidate(ctx); err != nil && !errors.Is(err, domain.ErrStaleFetch) {
			logger.FromContext(ctx).WithError(err).Warn("Image list refresh after submit failed")
			p.notifier.Notify(ctx, domain.Notification{
				Level:   domain.NotificationError,
				Title:   "Refresh failed",
				Message: "Your image was saved but the gallery could not be reloaded.",
			})
		}
	}

	return item, nil
}

// ResetDraft clears the file, uploaded URL, text fields and field errors.
func (p *Pipeline) ResetDraft() {
	p.mu.Lock()
	p.draft = domain.UploadDraft{}
	p.version++
	p.mu.Unlock()
}

// Close discards the draft when the form is dismissed.
func (p *Pipeline) Close() {
	p.ResetDraft()
}
