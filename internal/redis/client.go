package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "chat:ratelimit:"

type Client struct {
	*redis.Client
}

func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// RateLimitKey namespaces a limiter key so several deployments can share one
// Redis database.
func RateLimitKey(key string) string {
	return rateLimitPrefix + key
}
