// Package minio provides a BlobStore implementation using the MinIO client.
//
// MinIO is an S3-compatible object store. The store works with any
// S3-compatible service (Ceph, Garage, SeaweedFS) without pulling in the AWS SDK.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "images", "prod/")
//	loader := source.NewBlobLoader(store, source.DefaultLayout())
//
// Blob names such as "/<owner>/<post>.webp" map to object keys below the
// root prefix with the leading slash removed. List returns names with the
// leading slash restored.
package minio
