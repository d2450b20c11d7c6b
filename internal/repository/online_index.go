package repository

import (
	"context"
	"errors"

	"meme-guard-go/internal/model"
)

// ErrNotFound 表示在线索引中没有该帖子。这是正常结果，不是故障。
var ErrNotFound = errors.New("post not found in online index")

// OnlineIndex 是 post id 到标签向量的点查缓存，同一 key 后写覆盖先写。
type OnlineIndex interface {
	Upsert(ctx context.Context, rows []model.FeatureRow) error
	Lookup(ctx context.Context, postID string) (model.TagVector, error)
	Reset(ctx context.Context) error
}

func copyTags(tags model.TagVector) model.TagVector {
	out := make(model.TagVector, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
