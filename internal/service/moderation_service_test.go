package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-guard-go/internal/config"
	"meme-guard-go/internal/engine"
	"meme-guard-go/internal/model"
	"meme-guard-go/internal/repository"
	"meme-guard-go/pkg/classifier"
	"meme-guard-go/pkg/es"
)

func newEngine(t *testing.T) (*engine.Engine, *repository.MemoryOnlineIndex) {
	t.Helper()
	offline := repository.NewCSVOfflineLog(t.TempDir() + "/log.csv")
	online := repository.NewMemoryOnlineIndex(0, 0)
	return engine.NewEngine(offline, online, classifier.NewLogisticRegression(), engine.NewNoisyOracle(0, 1)), online
}

func TestDecideAndRetrain(t *testing.T) {
	ctx := context.Background()
	eng, online := newEngine(t)
	require.NoError(t, online.Upsert(ctx, []model.FeatureRow{{PostID: "1", Tags: model.TagVector{"Is_Harmful_Content": 1}}}))
	svc := NewModerationService(eng, nil, "")

	d := svc.Decide(ctx, "1")
	assert.Equal(t, model.ActionBlock, d.Action)
	assert.Equal(t, model.ActionErrorNotFound, svc.Decide(ctx, "2").Action)

	assert.ErrorIs(t, svc.Retrain(ctx), engine.ErrNoTrainingData)
}

func TestSearchFeaturesDisabled(t *testing.T) {
	eng, _ := newEngine(t)
	_, err := NewModerationService(eng, nil, "").SearchFeatures(context.Background(), "cat", 10)
	assert.ErrorIs(t, err, ErrSearchDisabled)
}

func TestSearchFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		assert.Equal(t, "/meme_features/_search", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 5, body["size"])

		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_score":1.5,"_source":{"post_id":"7","post_text":"hate","visual_summary":"frog","tags":["Is_Harmful_Content"]}}]}}`))
	}))
	defer srv.Close()

	client, err := es.NewClient(config.ElasticsearchConfig{Addresses: srv.URL})
	require.NoError(t, err)
	eng, _ := newEngine(t)

	hits, err := NewModerationService(eng, client, "meme_features").SearchFeatures(context.Background(), "hate", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, model.SearchHit{
		PostID:        "7",
		PostText:      "hate",
		VisualSummary: "frog",
		Tags:          []string{"Is_Harmful_Content"},
		Score:         1.5,
	}, hits[0])
}
