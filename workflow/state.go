package workflow

// State is a step of the per-repository state machine.
type State int

const (
	StateStart State = iota
	StatePulling
	StateCommitRouting
	StatePushing
	StateSucceeded
	StateNoOp
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StatePulling:
		return "pulling"
	case StateCommitRouting:
		return "commit-routing"
	case StatePushing:
		return "pushing"
	case StateSucceeded:
		return "succeeded"
	case StateNoOp:
		return "no-op"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the machine stops in s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateNoOp || s == StateFailed
}
