package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/NamanBalaji/segfetch/internal/chunk"
	httpPkg "github.com/NamanBalaji/segfetch/pkg/http"
)

var (
	ErrEmptyResponseBody     = errors.New("empty response body")
	ErrResponseNotSuccessful = errors.New("response not successful")
	ErrUnknown               = errors.New("unknown error")

	ErrWriteFailed = errors.New("chunk write failed")
	ErrMergeFailed = errors.New("chunk merge failed")
	ErrRangeSkip   = errors.New("failed to skip to range start")
)

// ErrorKind is the classification reported to the delegate on failure.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindUnknown
	KindEmptyResponseBody
	KindResponseNotSuccessful
	KindNoNetworkConnection
	KindConnectionTimedOut
	KindConnectionFailed
	KindHTTPNotFound
	KindWriteFailed
	KindRangeNotSatisfiable
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnknown:
		return "unknown"
	case KindEmptyResponseBody:
		return "empty response body"
	case KindResponseNotSuccessful:
		return "response not successful"
	case KindNoNetworkConnection:
		return "no network connection"
	case KindConnectionTimedOut:
		return "connection timed out"
	case KindConnectionFailed:
		return "connection failed"
	case KindHTTPNotFound:
		return "http not found"
	case KindWriteFailed:
		return "write failed"
	case KindRangeNotSatisfiable:
		return "range not satisfiable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error pairs a reported kind with the failure that caused it.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}

	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf maps err to the kind reported to the delegate. More specific
// causes win over the generic response failure they are wrapped in.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	var pathErr *fs.PathError

	switch {
	case errors.Is(err, httpPkg.ErrResourceNotFound):
		return KindHTTPNotFound
	case errors.Is(err, httpPkg.ErrRangeNotSatisfiable):
		return KindRangeNotSatisfiable
	case errors.Is(err, ErrResponseNotSuccessful):
		return KindResponseNotSuccessful
	case errors.Is(err, ErrEmptyResponseBody), errors.Is(err, chunk.ErrInvalidSize):
		return KindEmptyResponseBody
	case errors.Is(err, httpPkg.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindConnectionTimedOut
	case errors.Is(err, httpPkg.ErrNetworkProblem),
		errors.Is(err, httpPkg.ErrUnexpectedEOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, ErrRangeSkip):
		return KindConnectionFailed
	case errors.Is(err, ErrWriteFailed),
		errors.Is(err, ErrMergeFailed),
		errors.Is(err, chunk.ErrChunkTempDirCreate),
		errors.As(err, &pathErr):
		return KindWriteFailed
	default:
		return KindUnknown
	}
}

// responseError builds the failure for an unsuccessful response, keeping
// the status classification so KindOf can narrow it.
func responseError(code int) error {
	if classified := httpPkg.ClassifyHTTPError(code); classified != nil {
		return fmt.Errorf("%w: %w", ErrResponseNotSuccessful, classified)
	}

	return fmt.Errorf("%w: status %d", ErrResponseNotSuccessful, code)
}
