package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another holder owns the lock.
var ErrHeld = errors.New("lock held elsewhere")

// release deletes the key only if it still carries our token.
var release = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// extend pushes the expiry out only if we still own the key.
var extend = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

// Locker hands out a single named lease in Redis. It keeps replicas that share a
// catalog from reconciling at the same time.
type Locker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// New creates a locker for key. The lease expires after ttl if its holder dies.
func New(client *redis.Client, key string, ttl time.Duration) *Locker {
	return &Locker{client: client, key: key, ttl: ttl}
}

// Lease is an acquired lock.
type Lease struct {
	locker *Locker
	token  string
}

// Acquire takes the lock or returns ErrHeld.
func (l *Locker) Acquire(ctx context.Context) (*Lease, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return &Lease{locker: l, token: token}, nil
}

// Holder returns the token currently stored at the key, or "" if free.
func (l *Locker) Holder(ctx context.Context) (string, error) {
	v, err := l.client.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// Token identifies this lease.
func (ls *Lease) Token() string {
	return ls.token
}

// Extend renews the lease for another ttl. It returns ErrHeld if the lease was lost.
func (ls *Lease) Extend(ctx context.Context) error {
	n, err := extend.Run(ctx, ls.locker.client, []string{ls.locker.key}, ls.token, ls.locker.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend %s: %w", ls.locker.key, err)
	}
	if n == 0 {
		return ErrHeld
	}
	return nil
}

// Release frees the lock if this lease still owns it.
func (ls *Lease) Release(ctx context.Context) error {
	if _, err := release.Run(ctx, ls.locker.client, []string{ls.locker.key}, ls.token).Result(); err != nil {
		return fmt.Errorf("release %s: %w", ls.locker.key, err)
	}
	return nil
}
