package model

import "strings"

// Category 是策略类别。
type Category string

const (
	HarmfulContent        Category = "Harmful_Content"
	PoliticalContent      Category = "Political_Content"
	Spam                  Category = "Spam"
	CopyrightInfringement Category = "Copyright_Infringement"
)

// Categories 是固定的类别集合，顺序即分类器的特征列顺序。
var Categories = []Category{
	HarmfulContent,
	PoliticalContent,
	Spam,
	CopyrightInfringement,
}

// ParseCategory 不区分大小写地匹配类别名。viper 读取 map 时会把键转成小写。
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}
	return "", false
}

// TagKey 返回类别对应的标签名，如 Is_Harmful_Content。
func (c Category) TagKey() string { return "Is_" + string(c) }

// CategoryScores 是每个类别在 [0,1] 区间内的风险分数。
type CategoryScores map[Category]float64

// TagVector 是按标签名索引的 0/1 标签，是在线索引存储的单位。
type TagVector map[string]int

// Features 按 Categories 的固定顺序返回特征向量，缺失的标签记为 0。
func (t TagVector) Features() []float64 {
	out := make([]float64, len(Categories))
	for i, c := range Categories {
		out[i] = float64(t[c.TagKey()])
	}
	return out
}

// IsHarmful 报告 Is_Harmful_Content 是否被置位。
func (t TagVector) IsHarmful() bool {
	return t[HarmfulContent.TagKey()] == 1
}

// FeatureRow 是一个帖子完整的派生记录，创建后不再修改。
type FeatureRow struct {
	PostID   string             `json:"post_id"`
	PostText string             `json:"post_text"`
	Keywords []string           `json:"keywords"`
	Analysis StructuredAnalysis `json:"analysis"`
	Scores   CategoryScores     `json:"scores"`
	Tags     TagVector          `json:"tags"`
}
