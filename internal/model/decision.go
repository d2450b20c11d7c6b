package model

// Action 是对帖子的处置动作。
type Action string

const (
	ActionBlock         Action = "BLOCK"
	ActionDemote        Action = "DEMOTE"
	ActionDisplay       Action = "DISPLAY"
	ActionErrorNotFound Action = "ERROR_NOT_FOUND"
)

// Decision 是服务端返回的处置结果。帖子不存在时 Score 为空。
type Decision struct {
	PostID string   `json:"post_id"`
	Score  *float64 `json:"score,omitempty"`
	Action Action   `json:"action"`
}
