package middleware

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLimiter(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	defer client.Close()

	rl := NewRedisLimiter(client, 2, time.Minute)
	key := "test-" + uuid.NewString()
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := rl.Allow(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "request %d", i+1)
	}
}
