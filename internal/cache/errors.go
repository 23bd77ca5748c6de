package cache

import "errors"

var (
	// ErrClosed is returned when using a cache after Close.
	ErrClosed = errors.New("cache is closed")
)
