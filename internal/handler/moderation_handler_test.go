package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-guard-go/internal/engine"
	"meme-guard-go/internal/model"
	"meme-guard-go/internal/service"
)

type fakeService struct {
	decisions  map[string]model.Decision
	retrainErr error
	hits       []model.SearchHit
	searchErr  error
	lastSize   int
}

func (f *fakeService) Decide(_ context.Context, postID string) model.Decision {
	if d, ok := f.decisions[postID]; ok {
		return d
	}
	return model.Decision{PostID: postID, Action: model.ActionErrorNotFound}
}

func (f *fakeService) Retrain(context.Context) error { return f.retrainErr }

func (f *fakeService) SearchFeatures(_ context.Context, _ string, size int) ([]model.SearchHit, error) {
	f.lastSize = size
	return f.hits, f.searchErr
}

func newRouter(svc service.ModerationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewModerationHandler(svc).Register(r.Group("/api/v1"))
	return r
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestGetDecision(t *testing.T) {
	score := 0.1234
	r := newRouter(&fakeService{decisions: map[string]model.Decision{
		"1": {PostID: "1", Score: &score, Action: model.ActionBlock},
	}})

	w := do(r, http.MethodGet, "/api/v1/moderation/1")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data model.Decision `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, model.ActionBlock, body.Data.Action)
	assert.Equal(t, 0.1234, *body.Data.Score)

	w = do(r, http.MethodGet, "/api/v1/moderation/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"action":"ERROR_NOT_FOUND"`)
	assert.NotContains(t, w.Body.String(), `"score"`)
}

func TestTrain(t *testing.T) {
	assert.Equal(t, http.StatusOK, do(newRouter(&fakeService{}), http.MethodPost, "/api/v1/moderation/train").Code)
	assert.Equal(t, http.StatusConflict, do(newRouter(&fakeService{retrainErr: engine.ErrNoTrainingData}), http.MethodPost, "/api/v1/moderation/train").Code)
	assert.Equal(t, http.StatusInternalServerError, do(newRouter(&fakeService{retrainErr: errors.New("disk")}), http.MethodPost, "/api/v1/moderation/train").Code)
}

func TestSearchFeatures(t *testing.T) {
	svc := &fakeService{hits: []model.SearchHit{{PostID: "9", Score: 2}}}
	r := newRouter(svc)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/features/search").Code)

	w := do(r, http.MethodGet, "/api/v1/features/search?query=frog&size=abc")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, svc.lastSize)
	assert.Contains(t, w.Body.String(), `"postId":"9"`)

	disabled := newRouter(&fakeService{searchErr: service.ErrSearchDisabled})
	assert.Equal(t, http.StatusServiceUnavailable, do(disabled, http.MethodGet, "/api/v1/features/search?query=x").Code)
}
