// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("corpora/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = retrodb.Publish(ctx, store, "data/train", "train-v1")
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads with CRC32C integrity checks for large data files
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
