// Package policy 把类别分数按阈值转换为 0/1 标签。
package policy

import (
	"fmt"

	"meme-guard-go/internal/model"
)

// DefaultThreshold 是未显式配置的类别所使用的阈值。
const DefaultThreshold = 0.5

// Thresholds 是不可变的类别阈值表，构造后只读。
type Thresholds struct {
	byCategory map[model.Category]float64
}

// NewThresholds 校验并复制配置中的阈值，键为类别名（如 Harmful_Content，不区分大小写）。
// 未知类别直接报错，避免拼写错误悄悄退回默认阈值。
func NewThresholds(cfg map[string]float64) (Thresholds, error) {
	m := make(map[model.Category]float64, len(cfg))
	for name, v := range cfg {
		c, ok := model.ParseCategory(name)
		if !ok {
			return Thresholds{}, fmt.Errorf("unknown policy category %q", name)
		}
		if v < 0 || v > 1 {
			return Thresholds{}, fmt.Errorf("threshold for %s out of range [0,1]: %v", c, v)
		}
		m[c] = v
	}
	return Thresholds{byCategory: m}, nil
}

// For 返回类别的阈值。
func (t Thresholds) For(c model.Category) float64 {
	if v, ok := t.byCategory[c]; ok {
		return v
	}
	return DefaultThreshold
}

// Tag 报告单个分数是否达到类别阈值。
func (t Thresholds) Tag(c model.Category, score float64) bool {
	return score >= t.For(c)
}

// Apply 对每个类别打标：score >= threshold 记 1，否则记 0。纯函数，无副作用。
func Apply(t Thresholds, scores model.CategoryScores) model.TagVector {
	tags := make(model.TagVector, len(scores))
	for c, score := range scores {
		if t.Tag(c, score) {
			tags[c.TagKey()] = 1
		} else {
			tags[c.TagKey()] = 0
		}
	}
	return tags
}
