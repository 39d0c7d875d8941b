package blobstore

import (
	"context"
	"fmt"

	"github.com/hupe1980/imgcache/codec"
)

// CompressedStore wraps a BlobStore and stores every payload as a codec block.
//
// Open decodes the whole blob eagerly; image payloads are read in full anyway.
type CompressedStore struct {
	inner BlobStore
	alg   codec.Algorithm
}

// NewCompressedStore returns a store that compresses payloads with alg.
func NewCompressedStore(inner BlobStore, alg codec.Algorithm) *CompressedStore {
	return &CompressedStore{inner: inner, alg: alg}
}

// Open reads and decodes the blob.
func (s *CompressedStore) Open(ctx context.Context, name string) (Blob, error) {
	raw, err := ReadAll(ctx, s.inner, name)
	if err != nil {
		return nil, err
	}
	data, err := codec.Decode(raw, s.alg)
	if err != nil {
		return nil, fmt.Errorf("blobstore: decode %s: %w", name, err)
	}
	return &memoryBlob{data: data}, nil
}

// Put encodes data and writes it to the inner store.
func (s *CompressedStore) Put(ctx context.Context, name string, data []byte) error {
	block, err := codec.Encode(data, s.alg)
	if err != nil {
		return fmt.Errorf("blobstore: encode %s: %w", name, err)
	}
	return s.inner.Put(ctx, name, block)
}

// Delete removes the blob from the inner store.
func (s *CompressedStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

// List lists the inner store.
func (s *CompressedStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}
