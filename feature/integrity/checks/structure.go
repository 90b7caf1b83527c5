package checks

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"event-catalog/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// CheckStructure returns the prefixes that hold no object yet. The bucket itself
// must exist.
func CheckStructure(ctx context.Context, client storage.Client, bucket string, prefixes []string) ([]string, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	missing := []string{}
	for _, prefix := range prefixes {
		folder := folderPath(prefix)
		if folder == "" {
			continue
		}

		opts := minio.ListObjectsOptions{
			Prefix:    folder,
			Recursive: false,
			MaxKeys:   1,
		}

		// Cancel so the lister goroutine stops after the first object.
		listCtx, cancel := context.WithCancel(ctx)
		found := false
		for obj := range client.ListObjects(listCtx, bucket, opts) {
			found = obj.Err == nil
			break
		}
		cancel()
		if !found {
			missing = append(missing, folder)
		}
	}
	return missing, nil
}

// FixStructure creates an empty folder marker for each missing prefix.
func FixStructure(ctx context.Context, client storage.Client, bucket string, logger *zap.Logger, missing []string) error {
	for _, prefix := range missing {
		folder := folderPath(prefix)
		_, err := client.PutObject(ctx, bucket, folder, bytes.NewReader(nil), 0, minio.PutObjectOptions{})
		if err != nil {
			logger.Error("Failed to create folder", zap.String("folder", folder), zap.Error(err))
			return fmt.Errorf("create %s: %w", folder, err)
		}
		logger.Info("Created missing folder", zap.String("folder", folder))
	}
	return nil
}

func folderPath(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
