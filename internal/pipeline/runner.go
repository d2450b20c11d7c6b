package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"meme-guard-go/internal/config"
	"meme-guard-go/internal/engine"
	"meme-guard-go/internal/ingest"
	"meme-guard-go/internal/model"
	"meme-guard-go/internal/repository"
	"meme-guard-go/pkg/classifier"
	"meme-guard-go/pkg/log"
	"meme-guard-go/pkg/storage"
)

// Report 汇总一次批处理运行的结果。
type Report struct {
	RunID        string
	TrainStats   ingest.Stats
	ServeStats   ingest.Stats
	ModelTrained bool
	Decisions    []model.Decision
}

// Runner 执行完整的批处理流程：训练阶段和服务阶段。
type Runner struct {
	data      config.DataConfig
	images    storage.ImageSource
	processor *Processor
	store     *repository.FeatureStore
	engine    *engine.Engine
	runID     string
}

// NewRunner 创建一个新的 Runner 实例。
func NewRunner(
	data config.DataConfig,
	images storage.ImageSource,
	processor *Processor,
	store *repository.FeatureStore,
	eng *engine.Engine,
	runID string,
) *Runner {
	return &Runner{
		data:      data,
		images:    images,
		processor: processor,
		store:     store,
		engine:    eng,
		runID:     runID,
	}
}

func (r *Runner) dataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(r.data.BaseDir, name)
}

// Run 清空存储后依次执行训练阶段和服务阶段。
func (r *Runner) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: r.runID}
	log.Infof("[Runner] 批处理开始, RunID: %s", r.runID)

	if err := r.store.Reset(ctx); err != nil {
		return report, fmt.Errorf("清空特征存储失败: %w", err)
	}

	trained, stats, err := r.trainPhase(ctx)
	report.TrainStats = stats
	report.ModelTrained = trained
	if err != nil {
		return report, err
	}

	decisions, stats, err := r.servePhase(ctx)
	report.ServeStats = stats
	report.Decisions = decisions
	if err != nil {
		return report, err
	}

	log.Infof("[Runner] 批处理完成, RunID: %s, 决策数: %d", r.runID, len(decisions))
	return report, nil
}

func (r *Runner) trainPhase(ctx context.Context) (bool, ingest.Stats, error) {
	log.Info("[Runner] 阶段一: 读取训练数据")
	posts, stats, err := ingest.ReadPosts(ctx, r.dataPath(r.data.TrainFile), r.data.Limit, r.images)
	if err != nil {
		return false, stats, fmt.Errorf("读取训练数据失败: %w", err)
	}
	tracker := NewTracker()
	for _, post := range posts {
		if err := tracker.Advance(post.ID, model.StateIngested); err != nil {
			return false, stats, err
		}
	}

	log.Infof("[Runner] 阶段一: 派生 %d 个帖子的特征", len(posts))
	rows, err := r.processor.ProcessBatch(ctx, posts)
	if err != nil {
		return false, stats, err
	}
	if err := tracker.AdvanceRows(rows, model.StateTagged); err != nil {
		return false, stats, err
	}
	if err := r.store.AppendOffline(ctx, rows); err != nil {
		return false, stats, fmt.Errorf("写入训练特征失败: %w", err)
	}
	if err := tracker.AdvanceRows(rows, model.StateStoredOffline); err != nil {
		return false, stats, err
	}

	log.Info("[Runner] 阶段一: 训练模型")
	_, err = r.engine.Train(ctx)
	switch {
	case err == nil:
		return true, stats, nil
	case errors.Is(err, engine.ErrNoTrainingData), errors.Is(err, classifier.ErrSingleClass):
		log.Warnf("[Runner] 没有可用模型, 服务阶段使用规则兜底: %v", err)
		return false, stats, nil
	default:
		return false, stats, fmt.Errorf("训练失败: %w", err)
	}
}

func (r *Runner) servePhase(ctx context.Context) ([]model.Decision, ingest.Stats, error) {
	log.Info("[Runner] 阶段二: 读取服务数据")
	posts, stats, err := ingest.ReadPosts(ctx, r.dataPath(r.data.ServeFile), r.data.Limit, r.images)
	if err != nil {
		return nil, stats, fmt.Errorf("读取服务数据失败: %w", err)
	}
	tracker := NewTracker()
	for _, post := range posts {
		if err := tracker.Advance(post.ID, model.StateIngested); err != nil {
			return nil, stats, err
		}
	}

	rows, err := r.processor.ProcessBatch(ctx, posts)
	if err != nil {
		return nil, stats, err
	}
	if err := tracker.AdvanceRows(rows, model.StateTagged); err != nil {
		return nil, stats, err
	}
	if err := r.store.Persist(ctx, rows); err != nil {
		return nil, stats, fmt.Errorf("写入服务特征失败: %w", err)
	}
	if err := tracker.AdvanceRows(rows, model.StateStoredOffline); err != nil {
		return nil, stats, err
	}
	if err := tracker.AdvanceRows(rows, model.StateStoredOnline); err != nil {
		return nil, stats, err
	}

	log.Infof("[Runner] 阶段二: 为 %d 个帖子生成决策", len(posts))
	decisions := make([]model.Decision, 0, len(posts))
	for _, post := range posts {
		d := r.engine.Serve(ctx, post.ID)
		decisions = append(decisions, d)
		if d.Action == model.ActionErrorNotFound {
			log.Warnf("[Runner] 帖子 %s 已写入但在线索引查不到, 可能已被淘汰", post.ID)
			continue
		}
		if err := tracker.Advance(post.ID, model.StateServed); err != nil {
			return decisions, stats, err
		}
		log.Infof("Post %s: Action=%s (Score=%.4f)", post.ID, d.Action, *d.Score)
	}
	return decisions, stats, nil
}
