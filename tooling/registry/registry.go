// Package registry maps tool names to definitions and handlers and
// executes tool calls concurrently against a read-only state view.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/state"
)

var (
	ErrToolUnregistered = errors.New("tool is not registered")
	ErrNilHandler       = errors.New("tool handler is nil")
	ErrToolNameEmpty    = errors.New("tool name is empty")
	ErrToolDuplicate    = errors.New("tool is already registered")
)

// Call is what a handler sees: the parsed arguments plus the pre-step
// snapshot of run values.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]any
	State     state.Values
}

// Result is a handler outcome. Update is ignored when IsError is set.
type Result struct {
	Content string
	IsError bool
	Update  state.Update
}

// Text returns a successful result without a state delta.
func Text(content string) Result {
	return Result{Content: content}
}

// Errorf returns a tool-level error result. The run continues and the
// model sees the message.
func Errorf(format string, args ...any) Result {
	return Result{Content: "Error: " + fmt.Sprintf(format, args...), IsError: true}
}

// Handler executes one tool call. A returned error is an executor failure;
// domain rejections should be returned as Errorf results instead.
type Handler func(ctx context.Context, call Call) (Result, error)

// Tool pairs a definition with its handler.
type Tool struct {
	Definition agent.ToolDefinition
	Handler    Handler
}

// Registry stores tools by name and executes tool calls.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func New(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(tool Tool) error {
	name := tool.Definition.Name
	if name == "" {
		return ErrToolNameEmpty
	}
	if tool.Handler == nil {
		return fmt.Errorf("%w: %q", ErrNilHandler, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %q", ErrToolDuplicate, name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Definitions returns tool definitions in registration order.
func (r *Registry) Definitions() []agent.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]agent.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Definition)
	}
	return agent.CloneToolDefinitions(out)
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *Registry) Execute(ctx context.Context, call agent.ToolCall, view state.Values) (agent.ToolResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return agent.ToolResult{}, ctxErr
	}
	if call.Name == "" {
		return agent.ToolResult{}, fmt.Errorf("%w: call %q", ErrToolNameEmpty, call.ID)
	}

	tool, ok := r.Lookup(call.Name)
	if !ok {
		return agent.ToolResult{}, fmt.Errorf("%w: %q", ErrToolUnregistered, call.Name)
	}

	result, err := tool.Handler(ctx, Call{
		ID:        call.ID,
		Name:      call.Name,
		Arguments: agent.CloneToolCall(call).Arguments,
		State:     view,
	})
	if err != nil {
		return agent.ToolResult{}, err
	}

	out := agent.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: result.Content,
		IsError: result.IsError,
	}
	if result.IsError {
		out.FailureReason = agent.ToolFailureReasonRejected
	} else {
		out.Update = result.Update
	}
	return out, nil
}
