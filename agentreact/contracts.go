package agentreact

import (
	"context"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/state"
)

// ModelRequest is the model input contract for the ReAct engine.
type ModelRequest struct {
	Messages []agent.Message
	Tools    []agent.ToolDefinition
}

// Model produces assistant messages that may include tool calls.
type Model interface {
	Generate(ctx context.Context, request ModelRequest) (agent.Message, error)
}

// ToolExecutor resolves and executes tool calls. view is the pre-step
// snapshot of run values; executors must treat it as read-only and return
// changes through ToolResult.Update.
type ToolExecutor interface {
	Execute(ctx context.Context, call agent.ToolCall, view state.Values) (agent.ToolResult, error)
}
