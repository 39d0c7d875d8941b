// Package s3 provides AWS-backed implementations of blobstore.BlobStore.
//
// Store keeps image blobs in an S3 bucket. TableStore keeps small images
// (avatars, thumbnails) as binary attributes of a DynamoDB table, which is
// the database half of the remote store.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil { ... }
//
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "images", "prod/")
//	table := s3.NewTableStore(dynamodb.NewFromConfig(cfg), "images")
//
// # Features
//
//   - Ranged GetObject reads
//   - Multipart uploads with CRC32C checksums via feature/s3/manager
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
