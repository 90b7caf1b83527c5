package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"event-catalog/core/reconcile"
	"event-catalog/core/storage"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher announces finished runs on a pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher for channel.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Name identifies the publisher in logs.
func (p *RedisPublisher) Name() string { return "redis" }

// Publish sends the summary as JSON.
func (p *RedisPublisher) Publish(ctx context.Context, s *reconcile.Summary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}

// Archive stores summaries in object storage under prefix/YYYY/MM/DD/<run id>.json
// and prunes archives older than the retention period.
type Archive struct {
	client    storage.Client
	bucket    string
	prefix    string
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewArchive creates an archive publisher.
func NewArchive(client storage.Client, bucket, prefix string, retention time.Duration, logger *zap.Logger) *Archive {
	return &Archive{
		client:    client,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Name identifies the publisher in logs.
func (a *Archive) Name() string { return "archive" }

// Key returns the object name for a summary.
func (a *Archive) Key(s *reconcile.Summary) string {
	return path.Join(a.prefix, s.StartedAt.UTC().Format("2006/01/02"), s.RunID+".json")
}

// Publish uploads the summary, then prunes expired archives. Pruning failures are only logged.
func (a *Archive) Publish(ctx context.Context, s *reconcile.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	key := a.Key(s)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	if n, err := a.Prune(ctx); err != nil {
		a.logger.Warn("Archive prune failed", zap.Error(err))
	} else if n > 0 {
		a.logger.Info("Pruned run archives", zap.Int("count", n))
	}
	return nil
}

// Prune deletes archived summaries older than the retention period and returns
// how many were removed.
func (a *Archive) Prune(ctx context.Context) (int, error) {
	if a.retention <= 0 {
		return 0, nil
	}
	cutoff := a.now().Add(-a.retention)

	var expired []string
	opts := minio.ListObjectsOptions{Prefix: a.prefix + "/", Recursive: true}
	for obj := range a.client.ListObjects(ctx, a.bucket, opts) {
		if obj.Err != nil {
			return 0, fmt.Errorf("list archives: %w", obj.Err)
		}
		if obj.LastModified.Before(cutoff) {
			expired = append(expired, obj.Key)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(expired))
	for _, key := range expired {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	var failed []string
	for err := range a.client.RemoveObjects(ctx, a.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if err.Err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", err.ObjectName, err.Err))
		}
	}
	if len(failed) > 0 {
		return len(expired) - len(failed), fmt.Errorf("remove had %d errors: %v", len(failed), failed)
	}
	return len(expired), nil
}
