// Package modeltest provides deterministic models for tests and demos.
package modeltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/agentreact"
)

// Response configures one model turn in a scripted sequence.
type Response struct {
	Message agent.Message
	Err     error
}

// Final is a turn that answers without tool calls.
func Final(content string) Response {
	return Response{Message: agent.Message{Role: agent.RoleAssistant, Content: content}}
}

// Calls is a turn that requests the given tool calls in order.
func Calls(calls ...agent.ToolCall) Response {
	return Response{Message: agent.Message{Role: agent.RoleAssistant, ToolCalls: calls}}
}

// Call builds one tool call.
func Call(id, name string, arguments map[string]any) agent.ToolCall {
	return agent.ToolCall{ID: id, Name: name, Arguments: arguments}
}

// ScriptedModel replays responses in order and records every request.
type ScriptedModel struct {
	mu        sync.Mutex
	index     int
	responses []Response
	requests  []agentreact.ModelRequest
}

var _ agentreact.Model = (*ScriptedModel)(nil)

func NewScriptedModel(responses ...Response) *ScriptedModel {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedModel{responses: cloned}
}

func (m *ScriptedModel) Generate(ctx context.Context, request agentreact.ModelRequest) (agent.Message, error) {
	if err := ctx.Err(); err != nil {
		return agent.Message{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, agentreact.ModelRequest{
		Messages: agent.CloneMessages(request.Messages),
		Tools:    agent.CloneToolDefinitions(request.Tools),
	})
	if m.index >= len(m.responses) {
		return agent.Message{}, fmt.Errorf("script exhausted at step %d", m.index+1)
	}
	current := m.responses[m.index]
	m.index++
	if current.Err != nil {
		return agent.Message{}, current.Err
	}
	msg := agent.CloneMessage(current.Message)
	if msg.Role == "" {
		msg.Role = agent.RoleAssistant
	}
	return msg, nil
}

// Requests returns the requests received so far.
func (m *ScriptedModel) Requests() []agentreact.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]agentreact.ModelRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Remaining reports how many scripted turns have not been consumed.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.responses) - m.index
}
