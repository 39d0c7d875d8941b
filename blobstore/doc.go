// Package blobstore provides the storage abstraction the image loaders read from.
//
// BlobStore is the interface for reading and writing image blobs addressed by
// path (e.g. "/<owner>/<post>.webp"). Implementations must be safe for
// concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and demos
//   - LocalStore: local directory with mmap reads
//   - CompressedStore: wraps another store and compresses payloads via codec
//   - minio.Store: S3-compatible object storage
//   - s3.Store: Amazon S3 with ranged reads and multipart uploads
//   - s3.TableStore: small images held as DynamoDB binary attributes
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Missing blobs must be reported with an error satisfying
// errors.Is(err, ErrNotFound).
package blobstore
