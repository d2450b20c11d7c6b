package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-guard-go/internal/model"
	"meme-guard-go/pkg/classifier"
)

func TestRetrainSchedulerRejectsBadSpec(t *testing.T) {
	offline, online := newStore(t)
	e := NewEngine(offline, online, classifier.NewLogisticRegression(), NewNoisyOracle(0, 1))
	_, err := NewRetrainScheduler(context.Background(), e, "not a schedule")
	assert.Error(t, err)
}

func TestRetrainSchedulerTrains(t *testing.T) {
	ctx := context.Background()
	offline, online := newStore(t)
	rows := []model.FeatureRow{row("h", 1), row("b", 0)}
	require.NoError(t, offline.Append(ctx, rows))
	e := NewEngine(offline, online, classifier.NewLogisticRegression(), NewNoisyOracle(0, 1))

	s, err := NewRetrainScheduler(ctx, e, "@every 1h")
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	s.retrain(ctx)
	assert.True(t, e.HasModel())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	e.setModel(nil)
	s.retrain(cancelled)
	assert.False(t, e.HasModel(), "a cancelled context skips training")
}
