package idempotency_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/wod-ingestor/internal/idempotency"
	"github.com/jonesrussell/wod-ingestor/internal/logger"
	"github.com/jonesrussell/wod-ingestor/internal/models"
	"github.com/jonesrussell/wod-ingestor/internal/storage"
)

func newTestStore(t *testing.T) (*storage.RedisKV, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return storage.NewRedisKV(client, "idempotency"), mr
}

func TestGenerateKey(t *testing.T) {
	key := idempotency.GenerateKey("dump_post_to_bucket", "2024-04-01__some-slug")

	// deterministic
	assert.Equal(t, key, idempotency.GenerateKey("dump_post_to_bucket", "2024-04-01__some-slug"))

	// hex sha256
	assert.Len(t, key, 64)

	// distinct per operation and per identifier
	assert.NotEqual(t, key, idempotency.GenerateKey("save_sessions_to_bucket", "2024-04-01__some-slug"))
	assert.NotEqual(t, key, idempotency.GenerateKey("dump_post_to_bucket", "2024-04-01__other-slug"))
}

func TestCoordinator_CheckAndMark(t *testing.T) {
	store, _ := newTestStore(t)
	coord := idempotency.NewCoordinator(store, time.Hour, logger.NewNopLogger())
	ctx := context.Background()

	key := idempotency.GenerateKey("dump_post_to_bucket", "post-1")

	assert.False(t, coord.Check(ctx, key), "fresh key must read as not completed")

	coord.MarkComplete(ctx, key)

	assert.True(t, coord.Check(ctx, key), "marked key must read as completed")

	// other keys remain untouched
	other := idempotency.GenerateKey("dump_post_to_bucket", "post-2")
	assert.False(t, coord.Check(ctx, other))
}

func TestCoordinator_RecordContents(t *testing.T) {
	store, mr := newTestStore(t)
	coord := idempotency.NewCoordinator(store, 2*time.Hour, logger.NewNopLogger())
	ctx := context.Background()

	key := idempotency.GenerateKey("save_sessions_to_bucket", "2024-04-01__2024-04-05")
	coord.MarkComplete(ctx, key)

	raw, err := mr.Get("idempotency:" + key)
	require.NoError(t, err)

	var record models.IdempotencyRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &record))

	assert.Equal(t, key, record.Key)
	assert.Greater(t, record.TTL, time.Now().Unix())

	completed, parseErr := time.Parse(time.RFC3339, record.CompletedAt)
	require.NoError(t, parseErr)
	assert.WithinDuration(t, time.Now().UTC(), completed, time.Minute)

	// the redis entry itself expires
	ttl := mr.TTL("idempotency:" + key)
	assert.Greater(t, ttl, time.Hour)
}

func TestCoordinator_NilStore(t *testing.T) {
	coord := idempotency.NewCoordinator(nil, time.Hour, logger.NewNopLogger())
	ctx := context.Background()

	assert.False(t, coord.Check(ctx, "any-key"))
	coord.MarkComplete(ctx, "any-key") // must not panic
	assert.False(t, coord.Check(ctx, "any-key"), "disabled tracking never reports completion")
}

func TestCoordinator_FailsOpenOnStoreError(t *testing.T) {
	store, mr := newTestStore(t)
	coord := idempotency.NewCoordinator(store, time.Hour, logger.NewNopLogger())
	ctx := context.Background()

	key := idempotency.GenerateKey("dump_post_to_bucket", "post-1")
	coord.MarkComplete(ctx, key)
	require.True(t, coord.Check(ctx, key))

	mr.Close()

	assert.False(t, coord.Check(ctx, key), "store errors must read as not completed")
	coord.MarkComplete(ctx, key) // logged and swallowed
}

func TestNewCoordinator_DefaultTTL(t *testing.T) {
	store, mr := newTestStore(t)
	coord := idempotency.NewCoordinator(store, 0, logger.NewNopLogger())

	key := idempotency.GenerateKey("dump_post_to_bucket", "post-1")
	coord.MarkComplete(context.Background(), key)

	ttl := mr.TTL("idempotency:" + key)
	assert.Equal(t, idempotency.DefaultTTL, ttl)
}
