package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-guard-go/internal/config"
	"meme-guard-go/internal/model"
)

func TestApplyUsesConfiguredAndDefaultThresholds(t *testing.T) {
	th, err := NewThresholds(map[string]float64{
		"Harmful_Content": 0.8,
		"Spam":            0.9,
	})
	require.NoError(t, err)

	tags := Apply(th, model.CategoryScores{
		model.HarmfulContent:        0.8,  // 等于阈值
		model.Spam:                  0.89, // 低于阈值
		model.PoliticalContent:      0.5,  // 默认阈值
		model.CopyrightInfringement: 0.49,
	})

	assert.Equal(t, model.TagVector{
		"Is_Harmful_Content":        1,
		"Is_Spam":                   0,
		"Is_Political_Content":      1,
		"Is_Copyright_Infringement": 0,
	}, tags)
}

func TestApplyIsDeterministic(t *testing.T) {
	th, err := NewThresholds(map[string]float64{"Harmful_Content": 0.3})
	require.NoError(t, err)
	scores := model.CategoryScores{
		model.HarmfulContent:   0.31,
		model.PoliticalContent: 0.7,
	}

	first := Apply(th, scores)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Apply(th, scores))
	}
	assert.Equal(t, 0.31, scores[model.HarmfulContent], "scores must not be mutated")
}

func TestNewThresholdsRejectsOutOfRange(t *testing.T) {
	_, err := NewThresholds(map[string]float64{"Spam": -0.1})
	assert.Error(t, err)
	_, err = NewThresholds(map[string]float64{"Spam": 1.01})
	assert.Error(t, err)
}

func TestZeroThresholdsFallBackToDefault(t *testing.T) {
	var th Thresholds
	assert.Equal(t, DefaultThreshold, th.For(model.Spam))
}

func TestNewThresholdsMatchesLowercaseKeys(t *testing.T) {
	th, err := NewThresholds(map[string]float64{"harmful_content": 0.8, "spam": 0.9})
	require.NoError(t, err)
	assert.Equal(t, 0.8, th.For(model.HarmfulContent))
	assert.Equal(t, 0.9, th.For(model.Spam))
}

func TestNewThresholdsRejectsUnknownCategory(t *testing.T) {
	_, err := NewThresholds(map[string]float64{"Harmfull_Content": 0.8})
	assert.ErrorContains(t, err, "Harmfull_Content")
}

func TestShippedConfigThresholdsApply(t *testing.T) {
	cfg, err := config.Load("../../configs/config.yaml")
	require.NoError(t, err)
	th, err := NewThresholds(cfg.Policy.Thresholds)
	require.NoError(t, err)

	assert.Equal(t, 0.8, th.For(model.HarmfulContent))
	assert.Equal(t, 0.7, th.For(model.PoliticalContent))
	assert.Equal(t, 0.9, th.For(model.Spam))
	assert.Equal(t, 0.85, th.For(model.CopyrightInfringement))

	tags := Apply(th, model.CategoryScores{model.HarmfulContent: 0.6, model.Spam: 0.6})
	assert.Equal(t, 0, tags["Is_Harmful_Content"])
	assert.Equal(t, 0, tags["Is_Spam"])
}
