package engine

// State 流水线状态
type State string

const (
	StateIdle        State = "idle"
	StateGenerating  State = "generating"
	StateExtracting  State = "extracting"
	StateNormalizing State = "normalizing"
	StateValidating  State = "validating"
	StateMerging     State = "merging"
	StatePersisted   State = "persisted"
	StateFailed      State = "failed"
)

// Trace 访问过的状态序列
type Trace []State

// Last 当前状态
func (t Trace) Last() State {
	if len(t) == 0 {
		return StateIdle
	}
	return t[len(t)-1]
}
