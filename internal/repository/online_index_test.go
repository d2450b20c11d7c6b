package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-guard-go/internal/model"
)

func TestMemoryOnlineIndexWriteThenRead(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryOnlineIndex(0, 0)
	row := sampleRow("p1", 1)

	require.NoError(t, idx.Upsert(ctx, []model.FeatureRow{row}))
	tags, err := idx.Lookup(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, row.Tags, tags)

	tags["Is_Harmful_Content"] = 0
	again, err := idx.Lookup(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, again["Is_Harmful_Content"], "callers must not mutate stored vectors")
}

func TestMemoryOnlineIndexMissAndLastWriteWins(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryOnlineIndex(0, 0)

	_, err := idx.Lookup(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, idx.Upsert(ctx, []model.FeatureRow{sampleRow("p", 1)}))
	require.NoError(t, idx.Upsert(ctx, []model.FeatureRow{sampleRow("p", 0)}))
	tags, err := idx.Lookup(ctx, "p")
	require.NoError(t, err)
	assert.False(t, tags.IsHarmful())
	assert.Equal(t, 1, idx.Len())

	require.NoError(t, idx.Reset(ctx))
	_, err = idx.Lookup(ctx, "p")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryOnlineIndexCapacity(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryOnlineIndex(1, time.Hour)
	require.NoError(t, idx.Upsert(ctx, []model.FeatureRow{sampleRow("old", 0), sampleRow("new", 0)}))

	_, err := idx.Lookup(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = idx.Lookup(ctx, "new")
	assert.NoError(t, err)
}

func TestRedisOnlineIndex(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	idx := NewRedisOnlineIndex(rdb, time.Hour)

	row := sampleRow("p1", 1)
	data, err := json.Marshal(row.Tags)
	require.NoError(t, err)

	mock.ExpectSet("features:online:p1", string(data), time.Hour).SetVal("OK")
	mock.ExpectGet("features:online:p1").SetVal(string(data))
	mock.ExpectGet("features:online:missing").RedisNil()

	require.NoError(t, idx.Upsert(ctx, []model.FeatureRow{row}))
	tags, err := idx.Lookup(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, row.Tags, tags)

	_, err = idx.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisOnlineIndexReset(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	idx := NewRedisOnlineIndex(rdb, 0)

	mock.ExpectScan(0, "features:online:*", 500).SetVal([]string{"features:online:a", "features:online:b"}, 7)
	mock.ExpectDel("features:online:a", "features:online:b").SetVal(2)
	mock.ExpectScan(7, "features:online:*", 500).SetVal([]string{}, 0)

	require.NoError(t, idx.Reset(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
