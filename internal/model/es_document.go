package model

// FeatureDocument 是写入 Elasticsearch 的特征文档，供审核人员检索。
type FeatureDocument struct {
	PostID        string   `json:"post_id"`
	PostText      string   `json:"post_text"`
	Keywords      []string `json:"keywords"`
	VisualSummary string   `json:"visual_summary"`
	OCRText       string   `json:"ocr_text"`
	Flags         []string `json:"flags"` // 被置位的风险指标名
	Tags          []string `json:"tags"`  // 被置位的策略标签名
	RunID         string   `json:"run_id"`
}

// NewFeatureDocument 从 FeatureRow 构造检索文档。
func NewFeatureDocument(runID string, row FeatureRow) FeatureDocument {
	doc := FeatureDocument{
		PostID:        row.PostID,
		PostText:      row.PostText,
		Keywords:      row.Keywords,
		VisualSummary: row.Analysis.VisualSummary,
		OCRText:       row.Analysis.OCRText,
		RunID:         runID,
	}
	for _, name := range RiskNames {
		if row.Analysis.Risk(name).Flag {
			doc.Flags = append(doc.Flags, string(name))
		}
	}
	for _, c := range Categories {
		if row.Tags[c.TagKey()] == 1 {
			doc.Tags = append(doc.Tags, c.TagKey())
		}
	}
	return doc
}

// SearchHit 是特征检索返回给前端的结果。
type SearchHit struct {
	PostID        string   `json:"postId"`
	PostText      string   `json:"postText"`
	VisualSummary string   `json:"visualSummary"`
	Tags          []string `json:"tags"`
	Score         float64  `json:"score"`
}
