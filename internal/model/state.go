package model

// PostState 是帖子在流水线中的生命周期状态。
type PostState string

const (
	StateIngested      PostState = "INGESTED"
	StateTagged        PostState = "TAGGED"
	StateStoredOffline PostState = "STORED_OFFLINE"
	StateStoredOnline  PostState = "STORED_ONLINE"
	StateServed        PostState = "SERVED"
	StateErrorNotFound PostState = "ERROR_NOT_FOUND"
)

// nextStates 列出每个状态允许的后继状态。
var nextStates = map[PostState][]PostState{
	"":                 {StateIngested, StateErrorNotFound},
	StateIngested:      {StateTagged},
	StateTagged:        {StateStoredOffline},
	StateStoredOffline: {StateStoredOnline},
	StateStoredOnline:  {StateServed},
}

// CanTransition 报告从 from 到 to 是否是合法的状态迁移。
// 空字符串表示帖子尚未进入流水线；未经存储直接被查询时迁移到 ERROR_NOT_FOUND。
func CanTransition(from, to PostState) bool {
	for _, s := range nextStates[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal 报告该状态是否为终态。
func (s PostState) Terminal() bool {
	return s == StateServed || s == StateErrorNotFound
}
