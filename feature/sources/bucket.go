package sources

import (
	"context"
	"fmt"
	"path"
	"strings"

	"event-catalog/core/reconcile"
	"event-catalog/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Bucket reads listing drops from object storage. Every .json, .yaml or .yml
// object under the prefix is decoded on each fetch; the object's base name
// without extension is used as the default source name.
type Bucket struct {
	client   storage.Client
	bucket   string
	prefix   string
	maxBytes int64
	logger   *zap.Logger
}

// NewBucket creates a bucket source.
func NewBucket(client storage.Client, bucket, prefix string, maxBytes int64, logger *zap.Logger) *Bucket {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Bucket{client: client, bucket: bucket, prefix: prefix, maxBytes: maxBytes, logger: logger}
}

// Name returns the source name.
func (b *Bucket) Name() string { return "bucket:" + b.prefix }

// Fetch lists the prefix and decodes each object. Objects that cannot be read
// or decoded are logged and skipped; a listing failure fails the source.
func (b *Bucket) Fetch(ctx context.Context) ([]reconcile.RawRecord, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    b.prefix,
		Recursive: true,
	}

	var out []reconcile.RawRecord
	for obj := range b.client.ListObjects(ctx, b.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", b.bucket, b.prefix, obj.Err)
		}
		if !decodable(obj.Key) {
			continue
		}

		data, err := storage.ReadObject(ctx, b.client, b.bucket, obj.Key, b.maxBytes)
		if err != nil {
			b.logger.Warn("Skipping unreadable object", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		name := strings.TrimSuffix(path.Base(obj.Key), path.Ext(obj.Key))
		recs, err := Decode(data, obj.Key, name)
		if err != nil {
			b.logger.Warn("Skipping malformed object", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		out = append(out, recs...)
	}
	return out, nil
}

func decodable(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
