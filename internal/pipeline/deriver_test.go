package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"meme-guard-go/internal/model"
)

func TestDeriverUsesAnalysis(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, "posts.jsonl", []model.Post{{ID: "1", Text: "Look at this"}})

	analysis := model.ErrorAnalysis()
	analysis.VisualSummary = "a cartoon frog"
	analysis.OCRText = "feels good"
	analysis.Risks[model.RiskSarcastic] = model.RiskIndicator{Flag: true, Reason: "irony"}
	client := &stubVLM{analysis: analysis}

	row := newTestDeriver(t, dir, client, false).Derive(context.Background(), model.Post{ID: "1", Text: "Look at this", ImageRef: "img/1.png"})

	assert.Equal(t, "1", row.PostID)
	assert.Equal(t, "Look at this", row.PostText)
	assert.Equal(t, analysis, row.Analysis)
	assert.Equal(t, []string{"look", "this", "cartoon", "frog", "feels", "good"}, row.Keywords)
	assert.Len(t, row.Tags, len(model.Categories))
	for _, c := range model.Categories {
		want := 0
		if row.Scores[c] >= testThresholds(t).For(c) {
			want = 1
		}
		assert.Equal(t, want, row.Tags[c.TagKey()])
	}
}

func TestDeriverDegradesOnFailures(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, "posts.jsonl", []model.Post{{ID: "1"}})

	client := failingVLM()
	row := newTestDeriver(t, dir, client, true).Derive(context.Background(), model.Post{ID: "1", ImageRef: "img/1.png"})
	assert.True(t, row.Analysis.IsError())
	assert.Equal(t, int32(1), client.calls)
	for _, v := range row.Scores {
		assert.True(t, v >= 0 && v <= 1)
	}

	healthy := &stubVLM{analysis: model.ErrorAnalysis()}
	row = newTestDeriver(t, dir, healthy, false).Derive(context.Background(), model.Post{ID: "2", ImageRef: "img/missing.png"})
	assert.True(t, row.Analysis.IsError())
	assert.Equal(t, int32(0), healthy.calls, "no model call without image bytes")
}
