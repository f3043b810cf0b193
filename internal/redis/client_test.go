package redis

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "chat:ratelimit:send:user-1", RateLimitKey("send:user-1"))
}

func TestNewClient(t *testing.T) {
	t.Run("rejects malformed url", func(t *testing.T) {
		_, err := NewClient(context.Background(), "://nope")
		assert.Error(t, err)
	})

	t.Run("connects", func(t *testing.T) {
		url := os.Getenv("TEST_REDIS_URL")
		if url == "" {
			t.Skip("TEST_REDIS_URL not set")
		}
		client, err := NewClient(context.Background(), url)
		require.NoError(t, err)
		defer client.Close()
		assert.NoError(t, client.Ping(context.Background()).Err())
	})
}
