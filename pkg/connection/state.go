package connection

// State is the poll loop state.
type State uint8

const (
	// StateIdle indicates the loop has not started.
	StateIdle State = iota

	// StateInFlight indicates one poll request is outstanding.
	StateInFlight

	// StateRestartPending indicates the outstanding request is being
	// aborted and will be reissued immediately.
	StateRestartPending

	// StateBackoff indicates the loop is waiting before retrying.
	StateBackoff

	// StateClosed indicates the client has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateInFlight:
		return "IN_FLIGHT"
	case StateRestartPending:
		return "RESTART_PENDING"
	case StateBackoff:
		return "BACKOFF"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// CanTransition reports whether the loop may move from s to next.
func (s State) CanTransition(next State) bool {
	if next == StateClosed {
		return s != StateClosed
	}
	switch s {
	case StateIdle:
		return next == StateInFlight
	case StateInFlight:
		return next == StateInFlight || next == StateRestartPending || next == StateBackoff
	case StateRestartPending:
		return next == StateInFlight
	case StateBackoff:
		return next == StateInFlight
	default:
		return false
	}
}
