// Package redisx wraps a tuned go-redis client: a pool sized for
// high-concurrency redirect traffic's many short-lived connections, and a
// fire-and-forget Expire-on-first-increment idiom generalized for any
// caller that needs a fixed-window counter (the admin API rate limiter),
// not just a click counter.
package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps *redis.Client with the operations the rate limiter and any
// other admin-side caller need.
type Client struct {
	raw *redis.Client
}

// New connects to redisURL (either a redis:// URL or a bare host:port)
// with a large pool for bursty concurrent traffic and short read/write
// timeouts so a slow Redis never stalls requests for long.
func New(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	opt.PoolSize = 200
	opt.MinIdleConns = 50
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 200 * time.Millisecond
	opt.WriteTimeout = 200 * time.Millisecond
	opt.PoolTimeout = 50 * time.Millisecond

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisx: connect: %w", err)
	}
	return &Client{raw: client}, nil
}

func (c *Client) Close() error { return c.raw.Close() }

func (c *Client) Ping(ctx context.Context) error { return c.raw.Ping(ctx).Err() }

// IncrWithExpiry increments key and, on the first increment of a fresh
// window, sets its TTL in a fire-and-forget goroutine so the caller's
// latency budget is never spent waiting on the Expire call.
func (c *Client) IncrWithExpiry(ctx context.Context, key string, window time.Duration) (int64, error) {
	val, err := c.raw.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redisx: incr: %w", err)
	}
	if val == 1 {
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			c.raw.Expire(bgCtx, key, window)
		}()
	}
	return val, nil
}
