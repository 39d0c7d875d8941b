package imgcache

import (
	"errors"

	"github.com/hupe1980/imgcache/cache"
)

var (
	// ErrNoLoader is returned for a miss when neither the call nor the
	// Cache has a loader.
	ErrNoLoader = cache.ErrNilLoader

	// ErrClosed is returned by Put after Close.
	ErrClosed = errors.New("cache is closed")

	// ErrNilEntry is returned by Put for a nil entry.
	ErrNilEntry = errors.New("nil entry")

	// ErrNotFound matches loads of keys the remote store does not have.
	ErrNotFound = cache.ErrNotFound

	// ErrTimeout matches loads that ran into a deadline.
	ErrTimeout = cache.ErrTimeout

	// ErrTransient matches all other load failures.
	ErrTransient = cache.ErrTransient
)
