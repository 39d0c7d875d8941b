package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/hupe1980/imgcache/model"
)

var (
	// ErrNotFound matches loader errors for keys the remote store does not have.
	ErrNotFound = errors.New("image not found")
	// ErrTimeout matches loader errors caused by a deadline.
	ErrTimeout = errors.New("image load timed out")
	// ErrTransient matches every other loader error.
	ErrTransient = errors.New("image load failed")
	// ErrNilLoader is returned when a miss has no loader to call.
	ErrNilLoader = errors.New("nil loader")
	// ErrInvalidConfig is returned for a tier configuration with negative bounds.
	ErrInvalidConfig = errors.New("invalid tier config")
)

// ErrorKind classifies a loader failure.
type ErrorKind uint8

const (
	KindTransient ErrorKind = iota
	KindNotFound
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	default:
		return "transient"
	}
}

// LoaderError is the error every waiter of a failed load receives.
//
// errors.Is matches ErrNotFound, ErrTimeout or ErrTransient according to Kind.
// The loader's own error can be accessed via errors.Unwrap.
type LoaderError struct {
	Kind ErrorKind
	Key  model.Key
	Err  error
}

func (e *LoaderError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Key, e.Kind, e.Err)
}

func (e *LoaderError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e.Kind.
func (e *LoaderError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrTransient:
		return e.Kind == KindTransient
	}
	return false
}

type timeout interface {
	Timeout() bool
}

// Classify wraps err into a *LoaderError for key.
// An error that already is a *LoaderError is returned unchanged.
func Classify(key model.Key, err error) *LoaderError {
	var le *LoaderError
	if errors.As(err, &le) {
		return le
	}

	kind := KindTransient
	var te timeout
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		kind = KindNotFound
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &te) && te.Timeout():
		kind = KindTimeout
	}
	return &LoaderError{Kind: kind, Key: key, Err: err}
}

// IsNotFound reports whether err is a not-found loader error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
