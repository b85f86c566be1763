// Package cache defines the byte store behind the optional detail cache.
package cache

import (
	"context"
	"time"
)

// Store is satisfied by redisstore.Client.
type Store interface {
	Get(ctx context.Context, key string) (val []byte, found bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
