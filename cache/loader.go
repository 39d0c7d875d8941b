package cache

import (
	"context"

	"github.com/hupe1980/imgcache/model"
)

// Loader fetches an image from the remote store.
//
// Load may block and should honor ctx. A nil entry with a nil error is
// treated as not found.
type Loader interface {
	Load(ctx context.Context, key model.Key) (*model.Entry, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, key model.Key) (*model.Entry, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, key model.Key) (*model.Entry, error) {
	return f(ctx, key)
}
