package engine

import (
	"math/rand/v2"
	"sync"

	"meme-guard-go/internal/model"
)

const (
	// LabelBlock 和 LabelDisplay 是训练标签，模型输出的是 LabelDisplay 的概率。
	LabelBlock   = 0
	LabelDisplay = 1

	DefaultLabelNoise = 0.1
)

// Labeler 为一条离线记录给出训练标签。
type Labeler interface {
	Label(tags model.TagVector) int
}

// NoisyOracle 用 Is_Harmful_Content 作为真值，并以 noise 的概率翻转标签。
// 它是人工标注的替身，生产环境应换成真实标签来源。
type NoisyOracle struct {
	noise float64
	mu    sync.Mutex
	rng   *rand.Rand
}

// NewNoisyOracle 创建一个以 seed 初始化随机源的 NoisyOracle。
func NewNoisyOracle(noise float64, seed uint64) *NoisyOracle {
	return &NoisyOracle{
		noise: noise,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Label 实现 Labeler。
func (o *NoisyOracle) Label(tags model.TagVector) int {
	label := LabelDisplay
	if tags.IsHarmful() {
		label = LabelBlock
	}
	if o.noise <= 0 {
		return label
	}
	o.mu.Lock()
	flip := o.rng.Float64() < o.noise
	o.mu.Unlock()
	if flip {
		return 1 - label
	}
	return label
}
