// Package model 定义了流水线各阶段之间传递的数据结构。
package model

// Post 是一条原始输入帖子。派生出 FeatureRow 之后即被丢弃。
type Post struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	ImageRef string `json:"img"`
}
