package helpers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient initializes a redis client
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// AcquireLease takes a short-lived exclusive lease on key via SETNX. It
// returns true when the lease was acquired. Used to keep overlapping price
// sweeps from processing the same product twice.
func AcquireLease(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseLease drops a lease early. Expiry handles the crash case.
func ReleaseLease(ctx context.Context, rdb *redis.Client, key string) {
	_ = rdb.Del(ctx, key).Err()
}
