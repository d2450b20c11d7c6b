package repository

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-guard-go/internal/model"
)

func TestCSVOfflineLogRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := NewCSVOfflineLog(filepath.Join(t.TempDir(), "nested", "historical_tags.csv"))

	first := []model.FeatureRow{sampleRow("1", 1), sampleRow("2", 0)}
	second := []model.FeatureRow{sampleRow("3", 1)}
	require.NoError(t, l.Append(ctx, first))
	require.NoError(t, l.Append(ctx, second))

	rows, err := l.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, append(first, second...), rows)
}

func TestCSVOfflineLogWritesHeaderOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "log.csv")
	l := NewCSVOfflineLog(path)
	require.NoError(t, l.Append(ctx, []model.FeatureRow{sampleRow("1", 0)}))
	require.NoError(t, l.Append(ctx, []model.FeatureRow{sampleRow("2", 0)}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, CSVHeader(), records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "2", records[2][0])
	assert.Contains(t, records[0], "Is_Harmful_Content")
	assert.Contains(t, records[0], "is_child_exploitation_reason")
}

func TestCSVOfflineLogMissingAndReset(t *testing.T) {
	ctx := context.Background()
	l := NewCSVOfflineLog(filepath.Join(t.TempDir(), "log.csv"))

	_, err := l.ReadAll(ctx)
	assert.ErrorIs(t, err, ErrOfflineLogMissing)
	assert.NoError(t, l.Reset(ctx), "reset of a missing log is a no-op")

	require.NoError(t, l.Append(ctx, []model.FeatureRow{sampleRow("1", 0)}))
	require.NoError(t, l.Reset(ctx))
	_, err = l.ReadAll(ctx)
	assert.ErrorIs(t, err, ErrOfflineLogMissing)
}

func TestCSVOfflineLogEmptyBatchDoesNotCreateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	l := NewCSVOfflineLog(path)
	require.NoError(t, l.Append(context.Background(), nil))
	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCSVOfflineLogReadsLegacyBooleans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.csv")
	body := "post_id,Is_Spam,Is_Harmful_Content,is_spam,Is_Political_Content,Is_Copyright_Infringement\n" +
		"42,0,1.0,True,0,0\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	rows, err := NewCSVOfflineLog(path).ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "42", rows[0].PostID)
	assert.True(t, rows[0].Tags.IsHarmful())
	assert.True(t, rows[0].Analysis.Risk(model.RiskSpam).Flag)
}
