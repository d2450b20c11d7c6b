package model

import "time"

// FeatureRecord 对应于数据库中的 feature_rows 表，是离线特征日志的 SQL 形态。
type FeatureRecord struct {
	ID        uint               `gorm:"primaryKey;autoIncrement"`
	RunID     string             `gorm:"type:varchar(36);index;column:run_id"`
	PostID    string             `gorm:"type:varchar(64);not null;index;column:post_id"`
	PostText  string             `gorm:"type:text;column:post_text"`
	Keywords  []string           `gorm:"serializer:json;type:text;column:keywords"`
	Analysis  StructuredAnalysis `gorm:"serializer:json;type:text;column:analysis"`
	Scores    CategoryScores     `gorm:"serializer:json;type:text;column:scores"`
	Tags      TagVector          `gorm:"serializer:json;type:text;column:tags"`
	CreatedAt time.Time          `gorm:"autoCreateTime"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (FeatureRecord) TableName() string {
	return "feature_rows"
}

// NewFeatureRecord 把 FeatureRow 转换为数据库记录。
func NewFeatureRecord(runID string, row FeatureRow) *FeatureRecord {
	return &FeatureRecord{
		RunID:    runID,
		PostID:   row.PostID,
		PostText: row.PostText,
		Keywords: row.Keywords,
		Analysis: row.Analysis,
		Scores:   row.Scores,
		Tags:     row.Tags,
	}
}

// Row 把数据库记录还原为 FeatureRow。
func (r FeatureRecord) Row() FeatureRow {
	return FeatureRow{
		PostID:   r.PostID,
		PostText: r.PostText,
		Keywords: r.Keywords,
		Analysis: r.Analysis,
		Scores:   r.Scores,
		Tags:     r.Tags,
	}
}
