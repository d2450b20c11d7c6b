package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-guard-go/internal/model"
	"meme-guard-go/pkg/storage"
)

func setupData(t *testing.T, lines []string, images ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, img := range images {
		p := filepath.Join(dir, img)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("img"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "posts.jsonl"), []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return dir
}

func TestReadPostsFiltersMissingImages(t *testing.T) {
	dir := setupData(t, []string{
		`{"id": 42, "img": "img/42.png", "text": "hello"}`,
		`{"id": "a", "img": "img/a.png"}`,
		`{"id": "b", "img": "img/missing.png", "text": "gone"}`,
		`not json`,
		``,
	}, "img/42.png", "img/a.png")

	posts, stats, err := ReadPosts(context.Background(), filepath.Join(dir, "posts.jsonl"), 0, storage.NewFileSource(dir))
	require.NoError(t, err)

	assert.Equal(t, []model.Post{
		{ID: "42", Text: "hello", ImageRef: "img/42.png"},
		{ID: "a", Text: "", ImageRef: "img/a.png"},
	}, posts)
	assert.Equal(t, 2, stats.Ingested)
	assert.Equal(t, 1, stats.MissingImages)
	assert.Equal(t, 1, stats.Malformed)
}

func TestReadPostsLimit(t *testing.T) {
	dir := setupData(t, []string{
		`{"id": "1", "img": "1.png"}`,
		`{"id": "2", "img": "2.png"}`,
		`{"id": "3", "img": "3.png"}`,
	}, "1.png", "2.png", "3.png")

	posts, _, err := ReadPosts(context.Background(), filepath.Join(dir, "posts.jsonl"), 2, storage.NewFileSource(dir))
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestReadPostsMissingFile(t *testing.T) {
	_, _, err := ReadPosts(context.Background(), filepath.Join(t.TempDir(), "nope.jsonl"), 0, storage.NewFileSource("."))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestVerify(t *testing.T) {
	dir := setupData(t, []string{
		`{"id": "1", "img": "img/1.png"}`,
		`{"id": "2", "img": "img/2.png"}`,
	}, "img/1.png", "img/3.jpg", "notes/readme.txt")

	report, err := Verify(dir, filepath.Join(dir, "posts.jsonl"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Referenced)
	assert.Equal(t, 2, report.OnDisk)
	assert.Equal(t, []string{"img/2.png"}, report.MissingFromDisk)
	assert.Equal(t, []string{"img/3.jpg"}, report.ExtraOnDisk)
}
