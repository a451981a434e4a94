package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the application services; the HTTP layer maps them to status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("already exists")
	ErrUnauthorized = errors.New("unauthorized")
)

// ClientError pairs one of the sentinels above with the message an API client sees.
type ClientError struct {
	Kind    error
	Message string
}

func (e *ClientError) Error() string { return e.Kind.Error() + ": " + e.Message }

func (e *ClientError) Unwrap() error { return e.Kind }

func NewClientError(kind error, format string, args ...any) error {
	return &ClientError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
