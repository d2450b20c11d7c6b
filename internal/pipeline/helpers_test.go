package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"meme-guard-go/internal/model"
	"meme-guard-go/internal/policy"
	"meme-guard-go/internal/repository"
	"meme-guard-go/pkg/storage"
)

var errBackendDown = errors.New("backend down")

type stubVLM struct {
	analysis    model.StructuredAnalysis
	analyzeErr  error
	keywords    string
	generateErr error
	calls       int32

	mu      sync.Mutex
	prompts []string
}

func (s *stubVLM) Analyze(ctx context.Context, image []byte, prompt string) (model.StructuredAnalysis, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.analyzeErr != nil {
		return model.StructuredAnalysis{}, s.analyzeErr
	}
	return s.analysis, nil
}

func (s *stubVLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.generateErr != nil {
		return "", s.generateErr
	}
	return s.keywords, nil
}

func failingVLM() *stubVLM {
	return &stubVLM{analyzeErr: errBackendDown, generateErr: errBackendDown}
}

func testThresholds(t *testing.T) policy.Thresholds {
	t.Helper()
	th, err := policy.NewThresholds(map[string]float64{
		"Harmful_Content":        0.8,
		"Political_Content":      0.7,
		"Spam":                   0.9,
		"Copyright_Infringement": 0.85,
	})
	require.NoError(t, err)
	return th
}

func newTestDeriver(t *testing.T, baseDir string, client *stubVLM, useLLM bool) *Deriver {
	t.Helper()
	return NewDeriver(
		storage.NewFileSource(baseDir),
		client,
		DefaultAnalysisPrompt,
		NewKeywordExtractor(client, useLLM, DefaultKeywordPrompt),
		NewHashScorer(42, []string{"hate", "kill", "attack", "stupid"}),
		testThresholds(t),
	)
}

func newTestStore(t *testing.T) *repository.FeatureStore {
	t.Helper()
	offline := repository.NewCSVOfflineLog(filepath.Join(t.TempDir(), "historical_tags.csv"))
	return repository.NewFeatureStore(offline, repository.NewMemoryOnlineIndex(0, 0), nil, "test-run")
}

// writeDataset writes one image per post and a JSONL file referencing them.
func writeDataset(t *testing.T, dir, name string, posts []model.Post) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "img"), 0o755))
	var lines []string
	for _, p := range posts {
		if p.ImageRef == "" {
			p.ImageRef = fmt.Sprintf("img/%s.png", p.ID)
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, p.ImageRef), []byte("png-"+p.ID), 0o644))
		lines = append(lines, fmt.Sprintf(`{"id": %q, "text": %q, "img": %q}`, p.ID, p.Text, p.ImageRef))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}
