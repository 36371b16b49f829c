package agentreact_test

import (
	"context"
	"sync"
	"testing"

	"github.com/Gurpartap/graphfleet/adapters/modeltest"
	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/agentreact"
	"github.com/Gurpartap/graphfleet/eventing/inmem"
	"github.com/Gurpartap/graphfleet/requirements"
	"github.com/Gurpartap/graphfleet/state"
	"github.com/Gurpartap/graphfleet/tooling/registry"
	"github.com/Gurpartap/graphfleet/vfs"
)

type harness struct {
	loop   *agentreact.ReactLoop
	model  *modeltest.ScriptedModel
	events *inmem.Sink
	tools  []agent.ToolDefinition
}

func newSchema(t *testing.T) *state.Schema {
	t.Helper()
	schema, err := state.NewSchema(requirements.Cell(), vfs.Cell())
	if err != nil {
		t.Fatalf("unexpected schema error: %v", err)
	}
	return schema
}

// newHarness wires the requirement tools and projection middleware around a
// scripted model.
func newHarness(t *testing.T, responses []modeltest.Response, opts ...agentreact.Option) harness {
	t.Helper()
	r, err := registry.New(requirements.Tools(nil)...)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return newHarnessWith(t, r, r.Definitions(), responses, opts...)
}

func newHarnessWith(
	t *testing.T,
	tools agentreact.ToolExecutor,
	definitions []agent.ToolDefinition,
	responses []modeltest.Response,
	opts ...agentreact.Option,
) harness {
	t.Helper()
	model := modeltest.NewScriptedModel(responses...)
	events := inmem.New()
	base := []agentreact.Option{
		agentreact.WithSchema(newSchema(t)),
		agentreact.WithMiddleware(requirements.NewInitializer(nil), requirements.NewSerializer(nil)),
	}
	loop, err := agentreact.New(model, tools, events, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	return harness{loop: loop, model: model, events: events, tools: definitions}
}

func (h harness) execute(ctx context.Context, maxSteps int) (agent.RunState, error) {
	run := agent.RunState{
		ID:       "run-1",
		Status:   agent.RunStatusPending,
		Messages: []agent.Message{{Role: agent.RoleUser, Content: "collect requirements"}},
	}
	return h.loop.Execute(ctx, run, agent.EngineInput{MaxSteps: maxSteps, Tools: h.tools})
}

func store(id, field string, value any) agent.ToolCall {
	return modeltest.Call(id, requirements.ToolStore, map[string]any{"field_name": field, "value": value})
}

func projected(t *testing.T, run agent.RunState) string {
	t.Helper()
	entry, ok := vfs.FromValues(run.Values)[requirements.Path]
	if !ok {
		t.Fatalf("expected %s in files", requirements.Path)
	}
	text, ok := entry.(string)
	if !ok {
		t.Fatalf("expected projected string, got %T", entry)
	}
	return text
}

// funcExecutor adapts a function to agentreact.ToolExecutor.
type funcExecutor func(ctx context.Context, call agent.ToolCall, view state.Values) (agent.ToolResult, error)

func (f funcExecutor) Execute(ctx context.Context, call agent.ToolCall, view state.Values) (agent.ToolResult, error) {
	return f(ctx, call, view)
}

// recorder is a middleware that records which hooks ran, in order.
type recorder struct {
	name      string
	mu        sync.Mutex
	calls     []string
	beforeErr error
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) BeforeAgent(_ context.Context, _ state.Values) (state.Update, error) {
	r.record("before")
	return nil, r.beforeErr
}

func (r *recorder) AfterAgent(_ context.Context, _ state.Values) (state.Update, error) {
	r.record("after")
	return nil, nil
}

func (r *recorder) record(hook string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, hook)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}
