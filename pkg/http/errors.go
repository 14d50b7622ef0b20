package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

var (
	ErrRangeNotSatisfiable = errors.New("requested range not satisfiable")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrClientRequest       = errors.New("client error")
	ErrServerProblem       = errors.New("server error")

	ErrTimeout         = errors.New("operation timed out")
	ErrNetworkProblem  = errors.New("network-related error")
	ErrUnexpectedEOF   = errors.New("unexpected EOF")
	ErrRequestCreation = errors.New("failed to create request")
	ErrUnknown         = errors.New("unknown error")
)

// ClassifyHTTPError returns nil for 1xx-3xx codes and a sentinel carrying
// the code otherwise.
func ClassifyHTTPError(statusCode int) error {
	var sentinel error

	switch {
	case statusCode < http.StatusBadRequest:
		return nil
	case statusCode == http.StatusNotFound:
		sentinel = ErrResourceNotFound
	case statusCode == http.StatusRequestedRangeNotSatisfiable:
		sentinel = ErrRangeNotSatisfiable
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		sentinel = ErrAccessDenied
	case statusCode >= http.StatusInternalServerError:
		sentinel = ErrServerProblem
	default:
		sentinel = ErrClientRequest
	}

	return fmt.Errorf("%w (status %d)", sentinel, statusCode)
}

// ClassifyError wraps a transport error with the sentinel describing it.
// Cancellation is returned unchanged.
func ClassifyError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %w", ErrUnexpectedEOF, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", ErrNetworkProblem, err)
	default:
		return fmt.Errorf("%w: %w", ErrUnknown, err)
	}
}
