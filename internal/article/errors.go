package article

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown jobs and missing archives.
	ErrNotFound = errors.New("not found")
	// ErrQueueClosed is returned by a queue after shutdown.
	ErrQueueClosed = errors.New("queue closed")
)

// ValidationError rejects a request before any job is created.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// ProviderError reports a failed remote generation call.
type ProviderError struct {
	Provider ProviderName
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// PackagingError reports a failure while building or storing the archive.
type PackagingError struct {
	Op  string
	Err error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Op, e.Err)
}

func (e *PackagingError) Unwrap() error {
	return e.Err
}
