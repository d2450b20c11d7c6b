package pipeline

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"meme-guard-go/internal/model"
)

func randomKeywords(rng *rand.Rand) []string {
	n := rng.IntN(6)
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("word%d", rng.IntN(50))
	}
	return out
}

func TestHashScorerBounds(t *testing.T) {
	s := NewHashScorer(42, []string{"hate", "kill", "attack", "stupid"})
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		kws := randomKeywords(rng)
		if i%3 == 0 {
			kws = append(kws, "hate", "kill")
		}
		scores := s.Score(kws)
		assert.Len(t, scores, len(model.Categories))
		for c, v := range scores {
			assert.True(t, v >= 0 && v <= 1, "%s=%v for %v", c, v, kws)
		}
	}
}

func TestHashScorerDeterministicAndOrderInsensitive(t *testing.T) {
	s := NewHashScorer(42, []string{"hate"})
	assert.Equal(t, s.Score([]string{"cat", "meme"}), s.Score([]string{"meme", "cat"}))
	assert.Equal(t, s.Score(nil), s.Score([]string{}))
	assert.NotEqual(t, s.Score([]string{"cat"}), NewHashScorer(7, []string{"hate"}).Score([]string{"cat"}))
}

func TestHashScorerTriggerMonotonicity(t *testing.T) {
	s := NewHashScorer(42, []string{"hate", "kill", "attack", "stupid"})
	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 300; i++ {
		kws := randomKeywords(rng)
		without := s.Score(kws)
		with := s.Score(append(append([]string{}, kws...), "Attack"))

		assert.GreaterOrEqual(t, with[model.HarmfulContent], without[model.HarmfulContent], "%v", kws)
		assert.Equal(t, without[model.PoliticalContent], with[model.PoliticalContent])
		assert.Equal(t, without[model.Spam], with[model.Spam])
		assert.Equal(t, without[model.CopyrightInfringement], with[model.CopyrightInfringement])
	}
}

func TestHashScorerCategoryRanges(t *testing.T) {
	s := NewHashScorer(42, nil)
	rng := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 300; i++ {
		scores := s.Score(randomKeywords(rng))
		assert.LessOrEqual(t, scores[model.HarmfulContent], 0.6)
		assert.LessOrEqual(t, scores[model.Spam], 0.3)
		assert.LessOrEqual(t, scores[model.CopyrightInfringement], 0.1)
	}
}
