package auth

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-redis/redis/v8"
)

// Denylist remembers access-token ids that were logged out before expiry.
type Denylist interface {
	Deny(ctx context.Context, jti string, until time.Time) error
	Denied(ctx context.Context, jti string) (bool, error)
}

const denylistPrefix = "auth:denied:"

type RedisDenylist struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client, now: time.Now}
}

func (d *RedisDenylist) Deny(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, denylistPrefix+jti, "1", ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (d *RedisDenylist) Denied(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, denylistPrefix+jti).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis exists")
	}
	return n > 0, nil
}

// MemoryDenylist is the single-process fallback used when REDIS_URL is unset.
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: map[string]time.Time{}, now: time.Now}
}

func (d *MemoryDenylist) Deny(_ context.Context, jti string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, expiry := range d.entries {
		if !expiry.After(now) {
			delete(d.entries, id)
		}
	}
	if until.After(now) {
		d.entries[jti] = until
	}
	return nil
}

func (d *MemoryDenylist) Denied(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	expiry, ok := d.entries[jti]
	return ok && expiry.After(d.now()), nil
}
