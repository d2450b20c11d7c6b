package pipeline

import (
	"encoding/binary"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"meme-guard-go/internal/model"
)

const triggerBoost = 0.4

// Scorer 把关键词映射为各类别的风险分数。
type Scorer interface {
	Score(keywords []string) model.CategoryScores
}

// HashScorer 是占位打分器：分数是伪随机的，但对同一组关键词是确定的。
// 随机源只由种子和非触发词决定，因此加入触发词只会抬高 Harmful_Content。
type HashScorer struct {
	seed     uint64
	triggers map[string]struct{}
}

// NewHashScorer 创建 HashScorer。
func NewHashScorer(seed uint64, triggers []string) *HashScorer {
	set := make(map[string]struct{}, len(triggers))
	for _, t := range triggers {
		set[strings.ToLower(t)] = struct{}{}
	}
	return &HashScorer{seed: seed, triggers: set}
}

// Score 实现 Scorer，所有分数都落在 [0,1]。
func (s *HashScorer) Score(keywords []string) model.CategoryScores {
	var triggered bool
	baseline := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if _, ok := s.triggers[kw]; ok {
			triggered = true
			continue
		}
		baseline = append(baseline, kw)
	}
	sort.Strings(baseline)

	h := xxhash.New()
	var seedBytes [8]byte
	binary.LittleEndian.PutUint64(seedBytes[:], s.seed)
	_, _ = h.Write(seedBytes[:])
	for _, kw := range baseline {
		_, _ = h.WriteString(kw)
		_, _ = h.Write([]byte{0})
	}
	rng := rand.New(rand.NewPCG(s.seed, h.Sum64()))

	base := rng.Float64() * 0.5
	if triggered {
		base += triggerBoost
	}
	jitter := rng.Float64()*0.2 - 0.1

	return model.CategoryScores{
		model.HarmfulContent:        clamp01(base + jitter),
		model.PoliticalContent:      clamp01(rng.Float64()),
		model.Spam:                  clamp01(rng.Float64() * 0.3),
		model.CopyrightInfringement: clamp01(rng.Float64() * 0.1),
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
