package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shubhmrj/Sellium/pkg/config"
)

const idempotencyKeyTTL = 24 * time.Hour

// Client wraps Redis for order idempotency checks
type Client struct {
	rdb *redis.Client
}

// New connects a Redis client from configuration
func New(cfg config.RedisConfig) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Client{rdb: rdb}
}

// Ping verifies the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SetOrderIdempotency records a buyer-scoped idempotency key. Returns false
// when the key was already set, meaning the request is a replay.
func (c *Client) SetOrderIdempotency(ctx context.Context, buyerID uint, key string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, idempotencyKey(buyerID, key), 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ReleaseOrderIdempotency removes a previously claimed key so the buyer can
// retry after a failed placement
func (c *Client) ReleaseOrderIdempotency(ctx context.Context, buyerID uint, key string) error {
	return c.rdb.Del(ctx, idempotencyKey(buyerID, key)).Err()
}

func idempotencyKey(buyerID uint, key string) string {
	return fmt.Sprintf("order:idem:%d:%s", buyerID, key)
}

// Close releases the underlying connection pool
func (c *Client) Close() error {
	return c.rdb.Close()
}
