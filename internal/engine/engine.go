// Package engine 从离线日志训练分类器，并按帖子 ID 给出实时处置决策。
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"meme-guard-go/internal/model"
	"meme-guard-go/internal/repository"
	"meme-guard-go/pkg/classifier"
	"meme-guard-go/pkg/log"
	"meme-guard-go/pkg/metrics"
)

// ErrNoTrainingData 表示离线日志不存在或为空。
var ErrNoTrainingData = errors.New("engine: no training data in offline log")

const (
	blockBelow  = 0.2
	demoteBelow = 0.5
)

// ActionFor 把 display 概率映射为处置动作：<0.2 BLOCK，[0.2,0.5) DEMOTE，>=0.5 DISPLAY。
func ActionFor(probability float64) model.Action {
	switch {
	case probability < blockBelow:
		return model.ActionBlock
	case probability < demoteBelow:
		return model.ActionDemote
	default:
		return model.ActionDisplay
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Engine 持有训练好的模型。Train 和 Serve 可以并发调用。
type Engine struct {
	offline repository.OfflineLog
	online  repository.OnlineIndex
	trainer classifier.Trainer
	labeler Labeler

	mu    sync.RWMutex
	model classifier.Model
}

// NewEngine 创建决策引擎，初始没有模型，Serve 使用规则兜底。
func NewEngine(offline repository.OfflineLog, online repository.OnlineIndex, trainer classifier.Trainer, labeler Labeler) *Engine {
	return &Engine{
		offline: offline,
		online:  online,
		trainer: trainer,
		labeler: labeler,
	}
}

// Train 读取整个离线日志并重新训练。失败时引擎不保留任何模型。
func (e *Engine) Train(ctx context.Context) (classifier.Model, error) {
	log.Info("[Engine] 步骤1: 读取离线日志")
	rows, err := e.offline.ReadAll(ctx)
	if errors.Is(err, repository.ErrOfflineLogMissing) || (err == nil && len(rows) == 0) {
		e.setModel(nil)
		log.Warn("[Engine] 离线日志为空，跳过训练，使用规则兜底")
		return nil, ErrNoTrainingData
	}
	if err != nil {
		e.setModel(nil)
		return nil, fmt.Errorf("读取离线日志失败: %w", err)
	}

	X := make([][]float64, len(rows))
	y := make([]int, len(rows))
	for i, row := range rows {
		X[i] = row.Tags.Features()
		y[i] = e.labeler.Label(row.Tags)
	}
	log.Infof("[Engine] 步骤2: 构建训练集完成, 样本数: %d", len(rows))

	m, err := e.trainer.Fit(X, y)
	if err != nil {
		e.setModel(nil)
		log.Warnf("[Engine] 模型训练失败，使用规则兜底: %v", err)
		return nil, fmt.Errorf("训练分类器失败: %w", err)
	}
	e.setModel(m)
	log.Infof("[Engine] 步骤3: 模型训练完成, 样本数: %d", len(rows))
	return m, nil
}

func (e *Engine) setModel(m classifier.Model) {
	e.mu.Lock()
	e.model = m
	e.mu.Unlock()
}

// HasModel 报告当前是否有可用模型。
func (e *Engine) HasModel() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model != nil
}

// Serve 查询在线索引并给出决策，不会返回错误。
func (e *Engine) Serve(ctx context.Context, postID string) model.Decision {
	tags, err := e.online.Lookup(ctx, postID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Errorf("[Engine] 查询在线索引失败, PostID: %s, Error: %v", postID, err)
		}
		metrics.Decisions.WithLabelValues(string(model.ActionErrorNotFound)).Inc()
		return model.Decision{PostID: postID, Action: model.ActionErrorNotFound}
	}

	e.mu.RLock()
	m := e.model
	e.mu.RUnlock()

	var probability float64
	switch {
	case m != nil:
		probability = m.PredictProba(tags.Features())
	case tags.IsHarmful():
		probability = 0.0
	default:
		probability = 1.0
	}

	score := round4(probability)
	action := ActionFor(probability)
	metrics.Decisions.WithLabelValues(string(action)).Inc()
	return model.Decision{PostID: postID, Score: &score, Action: action}
}
