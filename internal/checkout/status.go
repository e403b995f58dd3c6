package checkout

type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition enforces the session lifecycle:
// INITIATED -> PENDING -> COMPLETED | FAILED, with FAILED reachable from any
// non-terminal state.
func (s Status) CanTransition(to Status) bool {
	if s.IsTerminal() {
		return false
	}
	switch to {
	case StatusPending:
		return s == StatusInitiated
	case StatusCompleted:
		return s == StatusPending
	case StatusFailed:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}
