package registry_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/state"
	toolingregistry "github.com/Gurpartap/graphfleet/tooling/registry"
)

func echoTool(name string) toolingregistry.Tool {
	return toolingregistry.Tool{
		Definition: agent.ToolDefinition{Name: name, Description: "echo " + name},
		Handler: func(_ context.Context, call toolingregistry.Call) (toolingregistry.Result, error) {
			return toolingregistry.Result{
				Content: name,
				Update:  state.Update{"last": call.ID},
			}, nil
		},
	}
}

func TestRegistryExecute_UnknownToolReturnsError(t *testing.T) {
	t.Parallel()

	registry, err := toolingregistry.New()
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	_, err = registry.Execute(context.Background(), agent.ToolCall{ID: "call-1", Name: "missing"}, nil)
	if !errors.Is(err, toolingregistry.ErrToolUnregistered) {
		t.Fatalf("expected ErrToolUnregistered, got %v", err)
	}
	if !strings.Contains(err.Error(), `"missing"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegistryExecute_EmptyToolNameReturnsError(t *testing.T) {
	t.Parallel()

	registry, err := toolingregistry.New(echoTool("a"))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	_, err = registry.Execute(context.Background(), agent.ToolCall{ID: "call-empty"}, nil)
	if !errors.Is(err, toolingregistry.ErrToolNameEmpty) {
		t.Fatalf("expected ErrToolNameEmpty, got %v", err)
	}
}

func TestRegistryRegister_RejectsInvalidTools(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		tool toolingregistry.Tool
		want error
	}{
		{name: "empty name", tool: toolingregistry.Tool{Handler: echoTool("x").Handler}, want: toolingregistry.ErrToolNameEmpty},
		{name: "nil handler", tool: toolingregistry.Tool{Definition: agent.ToolDefinition{Name: "x"}}, want: toolingregistry.ErrNilHandler},
		{name: "duplicate", tool: echoTool("a"), want: toolingregistry.ErrToolDuplicate},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			registry, err := toolingregistry.New(echoTool("a"))
			if err != nil {
				t.Fatalf("new registry: %v", err)
			}
			if err := registry.Register(tc.tool); !errors.Is(err, tc.want) {
				t.Fatalf("unexpected register error: got=%v want=%v", err, tc.want)
			}
		})
	}
}

func TestRegistryDefinitions_RegistrationOrder(t *testing.T) {
	t.Parallel()

	registry, err := toolingregistry.New(echoTool("zeta"), echoTool("alpha"), echoTool("mid"))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	var names []string
	for _, definition := range registry.Definitions() {
		names = append(names, definition.Name)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha", "mid"}, names); diff != "" {
		t.Fatalf("unexpected definition order (-want +got):\n%s", diff)
	}
}

func TestRegistryExecute_PassesStateViewAndReturnsUpdate(t *testing.T) {
	t.Parallel()

	var seen state.Values
	registry, err := toolingregistry.New(toolingregistry.Tool{
		Definition: agent.ToolDefinition{Name: "peek"},
		Handler: func(_ context.Context, call toolingregistry.Call) (toolingregistry.Result, error) {
			seen = call.State
			return toolingregistry.Result{Content: "ok", Update: state.Update{"count": 1}}, nil
		},
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	view := state.Values{"count": 0}
	result, err := registry.Execute(context.Background(), agent.ToolCall{ID: "call-1", Name: "peek"}, view)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if seen["count"] != 0 {
		t.Fatalf("handler did not receive view: %v", seen)
	}
	if result.CallID != "call-1" || result.Name != "peek" || result.Content != "ok" {
		t.Fatalf("unexpected result identity: %+v", result)
	}
	if diff := cmp.Diff(state.Update{"count": 1}, result.Update); diff != "" {
		t.Fatalf("unexpected update (-want +got):\n%s", diff)
	}
}

func TestRegistryExecute_ErrorResultDropsUpdate(t *testing.T) {
	t.Parallel()

	registry, err := toolingregistry.New(toolingregistry.Tool{
		Definition: agent.ToolDefinition{Name: "reject"},
		Handler: func(context.Context, toolingregistry.Call) (toolingregistry.Result, error) {
			result := toolingregistry.Errorf("bad input %q", "x")
			result.Update = state.Update{"leak": true}
			return result, nil
		},
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	result, err := registry.Execute(context.Background(), agent.ToolCall{ID: "call-1", Name: "reject"}, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError || result.FailureReason != agent.ToolFailureReasonRejected {
		t.Fatalf("unexpected error flags: %+v", result)
	}
	if result.Content != `Error: bad input "x"` {
		t.Fatalf("unexpected content: %q", result.Content)
	}
	if result.Update != nil {
		t.Fatalf("error result must not carry an update: %v", result.Update)
	}
}

func TestRegistryExecute_CancelledContext(t *testing.T) {
	t.Parallel()

	registry, err := toolingregistry.New(echoTool("a"))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := registry.Execute(ctx, agent.ToolCall{ID: "call-1", Name: "a"}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestArguments(t *testing.T) {
	t.Parallel()

	args := map[string]any{
		"name":   "orders",
		"blank":  "  ",
		"flag":   true,
		"num":    3.0,
		"labels": map[string]any{"team": "db"},
	}
	if got, err := toolingregistry.StringArgument(args, "name"); err != nil || got != "orders" {
		t.Fatalf("unexpected string argument: got=%q err=%v", got, err)
	}
	if _, err := toolingregistry.StringArgument(args, "blank"); !errors.Is(err, toolingregistry.ErrArgumentInvalid) {
		t.Fatalf("expected ErrArgumentInvalid for blank, got %v", err)
	}
	if _, err := toolingregistry.StringArgument(args, "num"); !errors.Is(err, toolingregistry.ErrArgumentInvalid) {
		t.Fatalf("expected ErrArgumentInvalid for number, got %v", err)
	}
	if got, _ := toolingregistry.OptionalString(args, "absent", "fallback"); got != "fallback" {
		t.Fatalf("unexpected optional string: %q", got)
	}
	if got, err := toolingregistry.OptionalBool(args, "flag", false); err != nil || !got {
		t.Fatalf("unexpected optional bool: got=%v err=%v", got, err)
	}
	if _, err := toolingregistry.OptionalBool(args, "name", false); !errors.Is(err, toolingregistry.ErrArgumentInvalid) {
		t.Fatalf("expected ErrArgumentInvalid for string bool, got %v", err)
	}
	labels, err := toolingregistry.OptionalStringMap(args, "labels")
	if err != nil {
		t.Fatalf("optional string map: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"team": "db"}, labels); diff != "" {
		t.Fatalf("unexpected labels (-want +got):\n%s", diff)
	}
}
