package repository

import (
	"context"
	"fmt"

	"meme-guard-go/internal/model"
	"meme-guard-go/pkg/log"
	"meme-guard-go/pkg/metrics"
)

// FeatureIndexer 把特征行写入检索引擎，供审核人员查询。索引失败不影响主流程。
type FeatureIndexer interface {
	IndexFeatures(ctx context.Context, runID string, rows []model.FeatureRow) error
}

// FeatureStore 组合离线日志和在线索引，并保证先写离线、后写在线（write-through）。
//
// 两次写入之间没有事务：离线写成功、在线写之前崩溃时，在线索引会落后于日志。
// 在线索引只是缓存，日志才是事实来源，这是唯一允许的不一致窗口。
type FeatureStore struct {
	offline OfflineLog
	online  OnlineIndex
	indexer FeatureIndexer
	runID   string
}

// NewFeatureStore 创建特征仓库。indexer 可以为 nil。
func NewFeatureStore(offline OfflineLog, online OnlineIndex, indexer FeatureIndexer, runID string) *FeatureStore {
	return &FeatureStore{
		offline: offline,
		online:  online,
		indexer: indexer,
		runID:   runID,
	}
}

// Offline 返回离线日志。
func (s *FeatureStore) Offline() OfflineLog { return s.offline }

// Online 返回在线索引。
func (s *FeatureStore) Online() OnlineIndex { return s.online }

// Reset 在一次新的运行开始时清空两层存储。
func (s *FeatureStore) Reset(ctx context.Context) error {
	if err := s.offline.Reset(ctx); err != nil {
		return fmt.Errorf("reset offline log: %w", err)
	}
	if err := s.online.Reset(ctx); err != nil {
		return fmt.Errorf("reset online index: %w", err)
	}
	log.Info("[FeatureStore] 离线日志和在线索引已清空")
	return nil
}

// AppendOffline 追加到离线日志，成功后再写检索索引。
func (s *FeatureStore) AppendOffline(ctx context.Context, rows []model.FeatureRow) error {
	if err := s.offline.Append(ctx, rows); err != nil {
		return fmt.Errorf("append offline: %w", err)
	}
	metrics.RowsPersisted.WithLabelValues("offline").Add(float64(len(rows)))
	log.Infof("[FeatureStore] 已写入 %d 条记录到离线日志", len(rows))

	if s.indexer != nil {
		if err := s.indexer.IndexFeatures(ctx, s.runID, rows); err != nil {
			log.Warnf("[FeatureStore] 写入检索索引失败, 忽略: %v", err)
		}
	}
	return nil
}

// UpsertOnline 写入在线索引。调用方必须保证这些行已经成功写入离线日志。
func (s *FeatureStore) UpsertOnline(ctx context.Context, rows []model.FeatureRow) error {
	if err := s.online.Upsert(ctx, rows); err != nil {
		return fmt.Errorf("upsert online: %w", err)
	}
	metrics.RowsPersisted.WithLabelValues("online").Add(float64(len(rows)))
	return nil
}

// Persist 先写离线日志，成功后再写在线索引。
func (s *FeatureStore) Persist(ctx context.Context, rows []model.FeatureRow) error {
	if err := s.AppendOffline(ctx, rows); err != nil {
		return err
	}
	return s.UpsertOnline(ctx, rows)
}

// Lookup 在在线索引中查找帖子的标签向量。
func (s *FeatureStore) Lookup(ctx context.Context, postID string) (model.TagVector, error) {
	return s.online.Lookup(ctx, postID)
}
