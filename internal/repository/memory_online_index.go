package repository

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"meme-guard-go/internal/model"
	"meme-guard-go/pkg/log"
)

// MemoryOnlineIndex 是进程内的在线索引。capacity 和 ttl 为 0 时不淘汰任何条目。
type MemoryOnlineIndex struct {
	data *expirable.LRU[string, model.TagVector]
}

// NewMemoryOnlineIndex 创建进程内在线索引。
func NewMemoryOnlineIndex(capacity int, ttl time.Duration) *MemoryOnlineIndex {
	return &MemoryOnlineIndex{
		data: expirable.NewLRU[string, model.TagVector](capacity, nil, ttl),
	}
}

// Upsert 用每行的标签向量覆盖已有条目。
func (m *MemoryOnlineIndex) Upsert(ctx context.Context, rows []model.FeatureRow) error {
	for _, row := range rows {
		m.data.Add(row.PostID, copyTags(row.Tags))
	}
	log.Infof("[OnlineIndex] 在线索引当前共有 %d 个 key", m.Len())
	return nil
}

// Lookup 返回标签向量的副本。
func (m *MemoryOnlineIndex) Lookup(ctx context.Context, postID string) (model.TagVector, error) {
	tags, ok := m.data.Get(postID)
	if !ok {
		return nil, ErrNotFound
	}
	return copyTags(tags), nil
}

// Reset 清空索引。
func (m *MemoryOnlineIndex) Reset(ctx context.Context) error {
	m.data.Purge()
	return nil
}

// Len 返回当前条目数。
func (m *MemoryOnlineIndex) Len() int {
	return m.data.Len()
}
