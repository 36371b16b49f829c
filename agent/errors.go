package agent

import "errors"

var (
	// ErrMaxStepsExceeded is returned when the loop reaches its step budget.
	ErrMaxStepsExceeded = errors.New("react loop exceeded max steps")
	// ErrRunNotFound is returned by run stores when a run ID is unknown.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunVersionConflict is returned by run stores on stale writes.
	ErrRunVersionConflict = errors.New("run version conflict")
	// ErrInvalidRunStateTransition is returned for status changes outside the lifecycle table.
	ErrInvalidRunStateTransition = errors.New("invalid run state transition")
	// ErrRunStateInvalid is returned when run state fails structural validation.
	ErrRunStateInvalid = errors.New("run state is invalid")
	// ErrInvalidRunID is returned for empty or malformed run IDs.
	ErrInvalidRunID = errors.New("invalid run id")
	// ErrRunNotContinuable is returned when a terminal run receives more input.
	ErrRunNotContinuable = errors.New("run is not continuable")
	// ErrRunNotCancellable is returned when a terminal run is cancelled.
	ErrRunNotCancellable = errors.New("run is not cancellable")

	ErrContextNil         = errors.New("context is nil")
	ErrCommandNil         = errors.New("command is nil")
	ErrCommandInvalid     = errors.New("command is invalid")
	ErrCommandUnsupported = errors.New("command is unsupported")

	// ErrEventPublish wraps sink failures. Runs still complete when publishing fails.
	ErrEventPublish = errors.New("event publish failed")
	// ErrEventInvalid is returned when an event fails payload validation.
	ErrEventInvalid = errors.New("event is invalid")
	// ErrEngineOutputContractViolation is returned when an engine rewrites history it was given.
	ErrEngineOutputContractViolation = errors.New("engine output contract violation")

	ErrMissingIDGenerator = errors.New("missing id generator")
	ErrMissingRunStore    = errors.New("missing run store")
	ErrMissingEngine      = errors.New("missing engine")
)
