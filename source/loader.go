package source

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/imgcache/blobstore"
	"github.com/hupe1980/imgcache/cache"
	"github.com/hupe1980/imgcache/model"
)

// BlobLoader loads images from a blob store.
type BlobLoader struct {
	store  blobstore.BlobStore
	layout Layout
}

// NewBlobLoader returns a loader reading layout paths from store.
func NewBlobLoader(store blobstore.BlobStore, layout Layout) *BlobLoader {
	return &BlobLoader{store: store, layout: layout}
}

// Load reads the whole blob for key.
func (l *BlobLoader) Load(ctx context.Context, key model.Key) (*model.Entry, error) {
	path, err := l.layout.Path(key)
	if err != nil {
		return nil, err
	}
	return readEntry(ctx, l.store, path, l.layout.ContentType, key)
}

func readEntry(ctx context.Context, store blobstore.BlobStore, path, contentType string, key model.Key) (*model.Entry, error) {
	data, err := blobstore.ReadAll(ctx, store, path)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, &cache.LoaderError{Kind: cache.KindNotFound, Key: key, Err: err}
		}
		return nil, err
	}
	return &model.Entry{Data: data, ContentType: contentType}, nil
}

// Fallback replaces not-found results for selected key kinds with a shared
// placeholder image.
type Fallback struct {
	next        cache.Loader
	store       blobstore.BlobStore
	path        string
	contentType string
	kinds       map[model.Kind]struct{}

	mu          sync.Mutex
	placeholder *model.Entry
}

// NewFallback wraps next. Keys of the given kinds that next reports as not
// found resolve to the blob at path in store.
func NewFallback(next cache.Loader, store blobstore.BlobStore, path string, kinds ...model.Kind) *Fallback {
	f := &Fallback{
		next:        next,
		store:       store,
		path:        path,
		contentType: DefaultLayout().ContentType,
		kinds:       make(map[model.Kind]struct{}, len(kinds)),
	}
	for _, k := range kinds {
		f.kinds[k] = struct{}{}
	}
	return f
}

// NewAvatarFallback serves DefaultAvatarPath for missing profile pictures.
func NewAvatarFallback(next cache.Loader, store blobstore.BlobStore) *Fallback {
	return NewFallback(next, store, DefaultAvatarPath, model.KindAvatar)
}

// Load implements cache.Loader.
func (f *Fallback) Load(ctx context.Context, key model.Key) (*model.Entry, error) {
	e, err := f.next.Load(ctx, key)
	if _, ok := f.kinds[key.Kind]; !ok {
		return e, err
	}
	if err == nil && e != nil {
		return e, nil
	}
	if err != nil && !cache.IsNotFound(cache.Classify(key, err)) {
		return nil, err
	}
	return f.loadPlaceholder(ctx, key)
}

// loadPlaceholder reads the placeholder once and shares it afterwards.
// Failed reads are retried on the next call.
func (f *Fallback) loadPlaceholder(ctx context.Context, key model.Key) (*model.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.placeholder != nil {
		return f.placeholder, nil
	}
	e, err := readEntry(ctx, f.store, f.path, f.contentType, key)
	if err != nil {
		return nil, err
	}
	f.placeholder = e
	return e, nil
}

// Chain routes keys to loaders by kind.
type Chain struct {
	def    cache.Loader
	routes map[model.Kind]cache.Loader
}

// NewChain returns a chain that sends unrouted kinds to def. def may be nil.
func NewChain(def cache.Loader) *Chain {
	return &Chain{def: def, routes: make(map[model.Kind]cache.Loader)}
}

// Route sends keys of kind to loader. It is not safe to call concurrently
// with Load.
func (c *Chain) Route(kind model.Kind, loader cache.Loader) *Chain {
	c.routes[kind] = loader
	return c
}

// Load implements cache.Loader.
func (c *Chain) Load(ctx context.Context, key model.Key) (*model.Entry, error) {
	if l, ok := c.routes[key.Kind]; ok {
		return l.Load(ctx, key)
	}
	if c.def == nil {
		return nil, &cache.LoaderError{Kind: cache.KindNotFound, Key: key, Err: ErrUnsupportedKind}
	}
	return c.def.Load(ctx, key)
}
