package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"meme-guard-go/internal/model"
)

// SQLOfflineLog 是 feature_rows 表上的离线日志实现。
type SQLOfflineLog struct {
	db    *gorm.DB
	runID string
}

// NewSQLOfflineLog 创建一个新的 SQLOfflineLog 实例，并确保表结构存在。
func NewSQLOfflineLog(db *gorm.DB, runID string) (*SQLOfflineLog, error) {
	if err := db.AutoMigrate(&model.FeatureRecord{}); err != nil {
		return nil, fmt.Errorf("migrate feature_rows: %w", err)
	}
	return &SQLOfflineLog{db: db, runID: runID}, nil
}

// Append 在一个事务中批量插入，自增主键保持追加顺序。
func (l *SQLOfflineLog) Append(ctx context.Context, rows []model.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([]*model.FeatureRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, model.NewFeatureRecord(l.runID, row))
	}
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(records, 100).Error // 每100条记录一批
	})
}

// ReadAll 按主键顺序读取所有记录。
func (l *SQLOfflineLog) ReadAll(ctx context.Context) ([]model.FeatureRow, error) {
	var records []model.FeatureRecord
	if err := l.db.WithContext(ctx).Order("id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("read feature_rows: %w", err)
	}
	rows := make([]model.FeatureRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Row())
	}
	return rows, nil
}

// Reset 删除表中所有记录。
func (l *SQLOfflineLog) Reset(ctx context.Context) error {
	return l.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.FeatureRecord{}).Error
}
