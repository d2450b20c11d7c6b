package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"meme-guard-go/pkg/log"
)

// RetrainScheduler 按 cron 表达式周期性地用离线日志重新训练引擎。
type RetrainScheduler struct {
	cron   *cron.Cron
	engine *Engine
}

// NewRetrainScheduler 解析 schedule（支持 @every 1h 这类描述符）并注册重新训练任务。
func NewRetrainScheduler(ctx context.Context, eng *Engine, schedule string) (*RetrainScheduler, error) {
	s := &RetrainScheduler{
		cron:   cron.New(),
		engine: eng,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.retrain(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid retrain schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *RetrainScheduler) retrain(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, err := s.engine.Train(ctx)
	switch {
	case err == nil:
		log.Info("[Scheduler] 定时重新训练完成")
	case errors.Is(err, ErrNoTrainingData):
		log.Info("[Scheduler] 离线日志为空, 跳过本次训练")
	default:
		log.Warnf("[Scheduler] 定时重新训练失败: %v", err)
	}
}

// Start 在后台启动调度。
func (s *RetrainScheduler) Start() {
	s.cron.Start()
	log.Info("[Scheduler] 定时重新训练已启动")
}

// Stop 停止调度并等待正在执行的训练结束。
func (s *RetrainScheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info("[Scheduler] 定时重新训练已停止")
}
