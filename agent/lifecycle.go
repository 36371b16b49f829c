package agent

import "fmt"

var allowedRunStatusTransitions = map[RunStatus][]RunStatus{
	"":                        {RunStatusPending},
	RunStatusPending:          {RunStatusRunning, RunStatusCancelled},
	RunStatusRunning:          {RunStatusCancelled, RunStatusCompleted, RunStatusFailed, RunStatusMaxStepsExceeded},
	RunStatusMaxStepsExceeded: {RunStatusRunning, RunStatusCancelled},
	RunStatusCompleted:        {},
	RunStatusFailed:           {},
	RunStatusCancelled:        {},
}

// IsTerminalRunStatus reports whether a run in status can no longer execute.
func IsTerminalRunStatus(status RunStatus) bool {
	switch status {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// ValidateRunStatusTransition checks from -> to against the lifecycle table.
// Self transitions are always allowed.
func ValidateRunStatusTransition(from, to RunStatus) error {
	if from == to {
		return nil
	}
	allowed, ok := allowedRunStatusTransitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown source status %q", ErrInvalidRunStateTransition, from)
	}
	for _, candidate := range allowed {
		if candidate == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidRunStateTransition, from, to)
}

// TransitionRunStatus moves state to status when the lifecycle allows it.
func TransitionRunStatus(state *RunState, to RunStatus) error {
	if err := ValidateRunStatusTransition(state.Status, to); err != nil {
		return err
	}
	state.Status = to
	return nil
}
