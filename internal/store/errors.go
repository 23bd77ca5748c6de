package store

import (
	"errors"
	"fmt"
)

// ErrDocumentNotFound is returned when no document is open under a key.
var ErrDocumentNotFound = errors.New("document not found")

// NotFoundError names the key that was missing.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDocumentNotFound, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrDocumentNotFound
}

func notFound(key string) error {
	return &NotFoundError{Key: key}
}
