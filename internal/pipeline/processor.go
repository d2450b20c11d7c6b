// Package pipeline 定义了帖子从原始数据到特征行、再到存储和决策的核心流程。
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"meme-guard-go/internal/model"
	"meme-guard-go/internal/repository"
	"meme-guard-go/pkg/log"
	"meme-guard-go/pkg/tasks"
)

const progressEvery = 10

// Processor 封装了特征派生和持久化的依赖。
type Processor struct {
	deriver *Deriver
	store   *repository.FeatureStore
	workers int
}

// NewProcessor 创建一个新的 Processor 实例。workers 小于 1 时按 1 处理。
func NewProcessor(deriver *Deriver, store *repository.FeatureStore, workers int) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		deriver: deriver,
		store:   store,
		workers: workers,
	}
}

// ProcessBatch 并发派生一批帖子，返回的行与输入顺序一致。只有 ctx 取消时才返回错误。
func (p *Processor) ProcessBatch(ctx context.Context, posts []model.Post) ([]model.FeatureRow, error) {
	rows := make([]model.FeatureRow, len(posts))
	var done int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, post := range posts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[i] = p.deriver.Derive(gctx, post)
			if n := atomic.AddInt64(&done, 1); n%progressEvery == 0 {
				log.Infof("[Processor] 已处理 %d/%d 个帖子", n, len(posts))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("批量派生特征被中断: %w", err)
	}
	log.Infof("[Processor] 批量派生完成, 共 %d 个帖子", len(posts))
	return rows, nil
}

// Process 处理一条流式任务：确认图片存在，派生特征，然后先写离线日志再写在线索引。
// 图片不存在的任务和批处理入口一样被过滤掉，返回 tasks.ErrNonRetryable。
func (p *Processor) Process(ctx context.Context, task tasks.PostTask) error {
	log.Infof("[Processor] 开始处理帖子, PostID: %s, Image: %s", task.ID, task.ImageRef)

	log.Info("[Processor] 步骤1: 检查图片")
	exists, err := p.deriver.images.Exists(ctx, task.ImageRef)
	if err != nil {
		return fmt.Errorf("检查图片 %s 失败: %w", task.ImageRef, err)
	}
	if !exists {
		log.Warnf("[Processor] 图片不存在, 跳过帖子, PostID: %s, Image: %s", task.ID, task.ImageRef)
		return fmt.Errorf("%w: 帖子 %s 的图片 %s 不存在", tasks.ErrNonRetryable, task.ID, task.ImageRef)
	}

	log.Info("[Processor] 步骤2: 派生特征")
	row := p.deriver.Derive(ctx, task.Post())

	log.Info("[Processor] 步骤3: 写入离线日志和在线索引")
	if err := p.store.Persist(ctx, []model.FeatureRow{row}); err != nil {
		log.Errorf("[Processor] 持久化失败, PostID: %s, Error: %v", task.ID, err)
		return fmt.Errorf("持久化帖子 %s 失败: %w", task.ID, err)
	}

	log.Infof("[Processor] 帖子处理成功完成, PostID: %s, 标签: %v", task.ID, row.Tags)
	return nil
}
