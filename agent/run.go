package agent

import "github.com/Gurpartap/graphfleet/state"

// RunID is the stable identifier for a runtime execution.
type RunID string

// RunStatus captures coarse execution state for persistence and orchestration.
type RunStatus string

const (
	RunStatusPending          RunStatus = "pending"
	RunStatusRunning          RunStatus = "running"
	RunStatusCancelled        RunStatus = "cancelled"
	RunStatusCompleted        RunStatus = "completed"
	RunStatusFailed           RunStatus = "failed"
	RunStatusMaxStepsExceeded RunStatus = "max_steps_exceeded"
)

// RunInput configures a fresh run. Values seeds state cells before the
// engine fills in declared initial values.
type RunInput struct {
	RunID        RunID
	SystemPrompt string
	UserPrompt   string
	MaxSteps     int
	Tools        []ToolDefinition
	Values       state.Values
}

// RunState is the runtime state of one session.
type RunState struct {
	ID       RunID        `json:"id"`
	Version  int64        `json:"version"`
	Step     int          `json:"step"`
	Status   RunStatus    `json:"status"`
	Output   string       `json:"output,omitempty"`
	Error    string       `json:"error,omitempty"`
	Messages []Message    `json:"messages,omitempty"`
	Values   state.Values `json:"values,omitempty"`
}

// CloneRunState returns a copy safe for in-memory stores. Cell values are
// shared since they are copy-on-write.
func CloneRunState(in RunState) RunState {
	out := in
	out.Messages = CloneMessages(in.Messages)
	if in.Values != nil {
		out.Values = in.Values.Clone()
	}
	return out
}

// RunResult is returned by the runtime API.
type RunResult struct {
	State RunState
}
