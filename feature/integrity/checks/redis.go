package checks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CheckRedis pings the shared Redis instance.
func CheckRedis(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
