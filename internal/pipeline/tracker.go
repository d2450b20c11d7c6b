package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"meme-guard-go/internal/model"
)

// ErrInvalidTransition 表示帖子状态迁移跳过了必要的步骤。
var ErrInvalidTransition = errors.New("invalid post state transition")

// Tracker 记录每个帖子在一个阶段内的生命周期状态。
type Tracker struct {
	mu     sync.Mutex
	states map[string]model.PostState
}

// NewTracker 创建一个空的 Tracker。
func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]model.PostState)}
}

// Advance 把帖子迁移到 to，非法迁移返回 ErrInvalidTransition。
// 同一批次里重复出现的帖子会重复迁移到相同状态，这不算错误。
func (t *Tracker) Advance(postID string, to model.PostState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	from := t.states[postID]
	if from == to {
		return nil
	}
	if !model.CanTransition(from, to) {
		return fmt.Errorf("%w: post %s %q -> %q", ErrInvalidTransition, postID, from, to)
	}
	t.states[postID] = to
	return nil
}

// AdvanceRows 对一批特征行执行同一个迁移。
func (t *Tracker) AdvanceRows(rows []model.FeatureRow, to model.PostState) error {
	for _, row := range rows {
		if err := t.Advance(row.PostID, to); err != nil {
			return err
		}
	}
	return nil
}

// state 返回帖子的当前状态，未跟踪的帖子返回空字符串。
func (t *Tracker) state(postID string) model.PostState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[postID]
}
