package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNoMoreData is returned by a next-page fetch when the tail page has no cursor.
	ErrNoMoreData = errors.New("no more data")

	// ErrStaleFetch is returned when a fetch settles after the cache moved on
	// (reset, or the cursor is no longer the tail cursor). Its page is discarded.
	ErrStaleFetch = errors.New("stale fetch discarded")
)

// NetworkError is a transport or server failure. Retryable by user action only.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: server returned HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError is a malformed server payload.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError blocks a submission client-side. It is never sent to the server.
type ValidationError struct {
	Fields        FieldErrors
	MissingRemote bool
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields)+1)
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name].Rule))
	}
	if e.MissingRemote {
		parts = append(parts, "image not uploaded")
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// UploadError is a blob-store failure.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// SubmitError is a create-record failure after the blob upload succeeded.
// The uploaded blob is left orphaned.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit failed: %v", e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }
