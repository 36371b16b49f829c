package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/requirements"
	"github.com/Gurpartap/graphfleet/state"
	"github.com/Gurpartap/graphfleet/tooling/registry"
	"github.com/Gurpartap/graphfleet/vfs"
)

// Session holds the state of one MCP client connection. Every tool call
// is a step: its delta is reduced into the session values and the
// after-agent projection runs before the call returns.
type Session struct {
	mu     sync.Mutex
	schema *state.Schema
	tools  *registry.Registry
	after  []agent.AfterAgentHook
	values state.Values
	logger *slog.Logger
	calls  atomic.Uint64
}

func NewSession(ctx context.Context, schema *state.Schema, tools *registry.Registry, middleware []agent.Middleware, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		schema: schema,
		tools:  tools,
		values: schema.Initial(),
		logger: logger,
	}
	for _, m := range middleware {
		if hook, ok := m.(agent.BeforeAgentHook); ok {
			if err := s.applyHook(hook.Name(), func() (state.Update, error) {
				return hook.BeforeAgent(ctx, s.values.Clone())
			}); err != nil {
				return nil, err
			}
		}
		if hook, ok := m.(agent.AfterAgentHook); ok {
			s.after = append(s.after, hook)
		}
	}
	return s, nil
}

// Call executes one tool against the session. Tool error results leave the
// session values unchanged.
func (s *Session) Call(ctx context.Context, name string, arguments map[string]any) (agent.ToolResult, error) {
	call := agent.ToolCall{
		ID:        fmt.Sprintf("mcp-%06d", s.calls.Add(1)),
		Name:      name,
		Arguments: arguments,
	}
	tool, ok := s.tools.Lookup(name)
	if !ok {
		return agent.ToolResult{}, fmt.Errorf("%w: %q", registry.ErrToolUnregistered, name)
	}
	if err := agent.ValidateToolArguments(tool.Definition.InputSchema, arguments); err != nil {
		return agent.NormalizedToolErrorResult(call, agent.ToolFailureReasonInvalidArguments, err), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.tools.Execute(ctx, call, s.values.Clone())
	if err != nil {
		return agent.ToolResult{}, err
	}
	if result.IsError || len(result.Update) == 0 {
		return result, nil
	}
	next, err := s.schema.Apply(s.values, result.Update)
	if err != nil {
		return agent.ToolResult{}, fmt.Errorf("apply %s delta: %w", name, err)
	}
	s.values = next

	for _, hook := range s.after {
		if err := s.applyHook(hook.Name(), func() (state.Update, error) {
			return hook.AfterAgent(ctx, s.values.Clone())
		}); err != nil {
			return agent.ToolResult{}, err
		}
	}
	return result, nil
}

// File returns the text of a file in the session filesystem.
func (s *Session) File(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return vfs.TextOf(vfs.FromValues(s.values)[path])
}

// Requirements returns the committed requirements.
func (s *Session) Requirements() *requirements.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return requirements.FromValues(s.values)
}

// applyHook must be called with mu held or before the session is shared.
func (s *Session) applyHook(name string, run func() (state.Update, error)) error {
	update, err := run()
	if err != nil {
		s.logger.Warn("session hook failed", "middleware", name, "err", err)
		return nil
	}
	if len(update) == 0 {
		return nil
	}
	next, err := s.schema.Apply(s.values, update)
	if err != nil {
		return fmt.Errorf("apply %s delta: %w", name, err)
	}
	s.values = next
	return nil
}
