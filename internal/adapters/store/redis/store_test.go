package redis

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/boxtoplay-keeper/internal/domain"
)

const testKey = "keeper:test:documents"

// newTestStore needs a Redis at KEEPER_TEST_REDIS_ADDR or localhost:6379 and
// skips otherwise.
func newTestStore(t *testing.T) (*Store, *redis.Client) {
	t.Helper()

	addr := os.Getenv("KEEPER_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client, err := Dial(context.Background(), addr)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	client.Del(context.Background(), testKey)
	t.Cleanup(func() {
		client.Del(context.Background(), testKey)
		client.Close()
	})

	return NewStore(client, testKey), client
}

func TestStoreFetchMissingHashIsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	files, err := store.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStoreReplaceThenFetch(t *testing.T) {
	store, client := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, "boxtoplay.json", `{"accounts":[]}`))
	require.NoError(t, store.Replace(ctx, "boxtoplay.json", `{"accounts":[{}]}`))
	require.NoError(t, client.HSet(ctx, testKey, "other.json", "x").Err())

	files, err := store.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"boxtoplay.json": `{"accounts":[{}]}`,
		"other.json":     "x",
	}, files)
}

func TestStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { client.Close() })
	store := NewStore(client, "")

	_, err := store.Fetch(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	err = store.Replace(context.Background(), "a", "b")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestDialRequiresAddress(t *testing.T) {
	_, err := Dial(context.Background(), "")
	assert.Error(t, err)
}
