package roleindex

import (
	"errors"
	"fmt"
)

// ErrIndexNotLoaded is returned when querying an index that was never built
// or loaded.
var ErrIndexNotLoaded = errors.New("role index not loaded")

// ErrClassifierNotLoaded is returned when predicting with no trained classifier.
var ErrClassifierNotLoaded = errors.New("classifier not loaded")

// ErrBuildInProgress is returned when another process holds the build lock.
var ErrBuildInProgress = errors.New("another index build is in progress")

// NotFoundError reports a missing artifact.
type NotFoundError struct {
	Path  string
	Cause error
}

func (e *NotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("artifact not found: %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("artifact not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return e.Cause
}

// CorruptError reports an artifact that exists but cannot be used.
type CorruptError struct {
	Path    string
	Message string
	Cause   error
}

func (e *CorruptError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("corrupt artifact %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("corrupt artifact %s: %s", e.Path, e.Message)
}

func (e *CorruptError) Unwrap() error {
	return e.Cause
}

// BuildError represents a failure while building or persisting an index.
type BuildError struct {
	Message string
	Cause   error
}

func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("build error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("build error: %s", e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Cause
}
