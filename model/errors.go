package model

import (
	"errors"
	"fmt"
)

// Fatal conditions. Any of these stops a run before downloads begin.
var (
	ErrInvalidReference = errors.New("invalid repository reference")
	ErrBranchNotFound   = errors.New("branch not found")
	ErrTreeUnavailable  = errors.New("tree listing unavailable")
)

// ErrorKind classifies a per-file failure.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNetwork
	KindTimeout
	KindIO
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNetwork:
		return "NetworkError"
	case KindTimeout:
		return "Timeout"
	case KindIO:
		return "IOError"
	case KindCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// TaskError is the error returned for a single failed download.
type TaskError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *TaskError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// NewTaskError wraps err with a failure kind.
func NewTaskError(kind ErrorKind, path string, err error) *TaskError {
	return &TaskError{Kind: kind, Path: path, Err: err}
}

// KindOf extracts the failure kind from err. Errors that carry no kind are
// reported as network errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var te *TaskError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindNetwork
}
