package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-guard-go/internal/model"
	"meme-guard-go/internal/repository"
	"meme-guard-go/pkg/tasks"
)

func TestProcessBatchKeepsSubmissionOrder(t *testing.T) {
	dir := t.TempDir()
	posts := make([]model.Post, 25)
	for i := range posts {
		posts[i] = model.Post{ID: fmt.Sprintf("p%02d", i), Text: fmt.Sprintf("post number %d", i)}
	}
	writeDataset(t, dir, "posts.jsonl", posts)
	for i := range posts {
		posts[i].ImageRef = fmt.Sprintf("img/%s.png", posts[i].ID)
	}

	p := NewProcessor(newTestDeriver(t, dir, failingVLM(), false), newTestStore(t), 4)
	rows, err := p.ProcessBatch(context.Background(), posts)
	require.NoError(t, err)
	require.Len(t, rows, len(posts))
	for i, row := range rows {
		assert.Equal(t, posts[i].ID, row.PostID)
	}
}

func TestProcessBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewProcessor(newTestDeriver(t, t.TempDir(), failingVLM(), false), newTestStore(t), 2)
	_, err := p.ProcessBatch(ctx, []model.Post{{ID: "1", ImageRef: "x.png"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessTaskPersistsBothTiers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeDataset(t, dir, "posts.jsonl", []model.Post{{ID: "k", Text: "hate"}})
	store := newTestStore(t)
	p := NewProcessor(newTestDeriver(t, dir, failingVLM(), true), store, 1)

	require.NoError(t, p.Process(ctx, tasks.PostTask{ID: "k", Text: "hate", ImageRef: "img/k.png"}))

	logged, err := store.Offline().ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	tags, err := store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, logged[0].Tags, tags)
}

func TestProcessTaskWithMissingImageIsDropped(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	p := NewProcessor(newTestDeriver(t, t.TempDir(), failingVLM(), false), store, 1)

	err := p.Process(ctx, tasks.PostTask{ID: "ghost", ImageRef: "img/does-not-exist.png"})
	assert.ErrorIs(t, err, tasks.ErrNonRetryable)

	_, err = store.Lookup(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Offline().ReadAll(ctx)
	assert.ErrorIs(t, err, repository.ErrOfflineLogMissing)
}
