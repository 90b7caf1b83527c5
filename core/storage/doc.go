// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client so the catalog can read source drops from a bucket
// and archive run summaries next to them. This abstraction supports both AWS S3
// and self-hosted MinIO instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (as seen in core/storage/mocks).
//
// # Operations
//
//   - BucketExists / MakeBucket: used by EnsureBucket at startup.
//   - PutObject: writes run archives.
//   - GetObject: reads source drops, see ReadObject for the size-capped helper.
//   - ListObjects: lists drops and archives under a prefix.
//   - RemoveObjects: prunes expired archives.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	err = storage.EnsureBucket(ctx, client, config.Bucket, config.Region)
package storage
