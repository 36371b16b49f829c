package agent

import "context"

// Engine executes run state transitions for one runtime execution slice.
// Implementations own RunState.Values while executing and must return the
// committed values alongside the transcript.
type Engine interface {
	Execute(ctx context.Context, state RunState, input EngineInput) (RunState, error)
}

// EngineInput provides execution constraints and tool contracts.
type EngineInput struct {
	MaxSteps int
	Tools    []ToolDefinition
}
