package agent

import (
	"errors"
	"fmt"
)

// ValidateRunState checks structural run-state invariants before persistence boundaries.
func ValidateRunState(state RunState) error {
	if state.ID == "" {
		return errors.Join(
			ErrRunStateInvalid,
			fmt.Errorf("%w: field=id reason=empty", ErrInvalidRunID),
		)
	}
	if state.Step < 0 {
		return fmt.Errorf("%w: field=step reason=negative value=%d run_id=%q", ErrRunStateInvalid, state.Step, state.ID)
	}
	if state.Version < 0 {
		return fmt.Errorf("%w: field=version reason=negative value=%d run_id=%q", ErrRunStateInvalid, state.Version, state.ID)
	}
	if _, ok := allowedRunStatusTransitions[state.Status]; !ok || state.Status == "" {
		return fmt.Errorf("%w: field=status reason=unknown value=%q run_id=%q", ErrRunStateInvalid, state.Status, state.ID)
	}
	for name := range state.Values {
		if name == "" {
			return fmt.Errorf("%w: field=values reason=empty_cell_name run_id=%q", ErrRunStateInvalid, state.ID)
		}
	}
	return nil
}
