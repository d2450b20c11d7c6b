// Package repository 实现了特征仓库：持久的离线特征日志和低延迟的在线特征索引。
package repository

import (
	"context"
	"errors"

	"meme-guard-go/internal/model"
)

// ErrOfflineLogMissing 表示离线日志尚未创建。
var ErrOfflineLogMissing = errors.New("offline log does not exist")

// OfflineLog 是只追加的特征行日志，是模型训练的唯一数据来源。
type OfflineLog interface {
	// Append 按提交顺序追加一批特征行；一批要么全部写入，要么都不写入。
	Append(ctx context.Context, rows []model.FeatureRow) error
	// ReadAll 按追加顺序返回所有特征行。日志不存在时返回 ErrOfflineLogMissing。
	ReadAll(ctx context.Context) ([]model.FeatureRow, error)
	// Reset 清空日志，仅在一次流水线运行开始时调用。
	Reset(ctx context.Context) error
}
