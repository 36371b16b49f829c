package agent

import (
	"maps"

	"github.com/Gurpartap/graphfleet/state"
)

// ToolDefinition declares a callable capability exposed to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// ToolCall is requested by the assistant message and executed by a tool executor.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolFailureReason classifies a normalized tool error result.
type ToolFailureReason string

const (
	ToolFailureReasonUnknownTool      ToolFailureReason = "unknown_tool"
	ToolFailureReasonInvalidArguments ToolFailureReason = "invalid_arguments"
	ToolFailureReasonExecutorError    ToolFailureReason = "executor_error"
	ToolFailureReasonRejected         ToolFailureReason = "rejected"
)

// ToolResult is the normalized output produced by a tool execution.
// Update is the state delta the tool contributes to its step; it is
// dropped when IsError is set.
type ToolResult struct {
	CallID        string            `json:"call_id"`
	Name          string            `json:"name"`
	Content       string            `json:"content"`
	IsError       bool              `json:"is_error,omitempty"`
	FailureReason ToolFailureReason `json:"failure_reason,omitempty"`
	Update        state.Update      `json:"-"`
}

// ToolResultMessage converts a tool result to a transcript message.
func ToolResultMessage(result ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Name:       result.Name,
		ToolCallID: result.CallID,
		Content:    result.Content,
	}
}

// CloneToolCall returns a deep copy of a tool call.
func CloneToolCall(in ToolCall) ToolCall {
	out := in
	if in.Arguments != nil {
		out.Arguments = make(map[string]any, len(in.Arguments))
		maps.Copy(out.Arguments, in.Arguments)
	}
	return out
}

// CloneToolDefinitions returns copies of definitions with independent schema maps.
func CloneToolDefinitions(in []ToolDefinition) []ToolDefinition {
	out := make([]ToolDefinition, len(in))
	for i := range in {
		out[i] = in[i]
		if in[i].InputSchema != nil {
			out[i].InputSchema = make(map[string]any, len(in[i].InputSchema))
			maps.Copy(out[i].InputSchema, in[i].InputSchema)
		}
	}
	return out
}
