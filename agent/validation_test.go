package agent_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Gurpartap/graphfleet/agent"
)

func TestValidateEvent(t *testing.T) {
	t.Parallel()

	result := agent.ToolResult{CallID: "call-1", Name: "store_requirement"}
	valid := []agent.Event{
		{RunID: "run-1", Type: agent.EventTypeRunStarted},
		{RunID: "run-1", Type: agent.EventTypeToolResult, ToolResult: &result},
		{RunID: "run-1", Type: agent.EventTypeStateUpdated, Cells: []string{"files"}},
		{RunID: "run-1", Type: agent.EventTypeCommandApplied, CommandKind: agent.CommandKindStart},
	}
	for _, event := range valid {
		if err := agent.ValidateEvent(event); err != nil {
			t.Fatalf("unexpected error for %s: %v", event.Type, err)
		}
	}

	invalid := []agent.Event{
		{RunID: "run-1"},
		{Type: agent.EventTypeRunStarted},
		{RunID: "run-1", Type: agent.EventTypeRunStarted, Step: -1},
		{RunID: "run-1", Type: agent.EventTypeAssistantMessage},
		{RunID: "run-1", Type: agent.EventTypeToolResult, ToolResult: &agent.ToolResult{Name: "x"}},
		{RunID: "run-1", Type: agent.EventTypeStateUpdated},
		{RunID: "run-1", Type: agent.EventTypeStateUpdated, Cells: []string{""}},
		{RunID: "run-1", Type: agent.EventTypeCommandApplied},
	}
	for i, event := range invalid {
		if err := agent.ValidateEvent(event); !errors.Is(err, agent.ErrEventInvalid) {
			t.Fatalf("case %d: unexpected error: got=%v want=%v", i, err, agent.ErrEventInvalid)
		}
	}
}

func TestValidateToolArguments(t *testing.T) {
	t.Parallel()

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field_name": map[string]any{"type": "string", "pattern": `^[a-z_]+$`},
			"delete":     map[string]any{"type": "boolean"},
			"value":      map[string]any{},
		},
		"required":             []any{"field_name"},
		"additionalProperties": false,
	}

	ok := []map[string]any{
		{"field_name": "engine", "value": "postgres"},
		{"field_name": "engine", "value": map[string]any{"nested": true}, "delete": false},
	}
	for _, args := range ok {
		if err := agent.ValidateToolArguments(schema, args); err != nil {
			t.Fatalf("unexpected error for %v: %v", args, err)
		}
	}

	bad := []map[string]any{
		{},
		{"field_name": 3},
		{"field_name": "Engine"},
		{"field_name": "engine", "delete": "yes"},
		{"field_name": "engine", "extra": 1},
	}
	for _, args := range bad {
		if err := agent.ValidateToolArguments(schema, args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
	if err := agent.ValidateToolArguments(nil, map[string]any{"anything": 1}); err != nil {
		t.Fatalf("unexpected error for empty schema: %v", err)
	}
}

func TestValidateToolArguments_PatternConcurrentAndInvalid(t *testing.T) {
	t.Parallel()

	schema := map[string]any{
		"properties": map[string]any{"field_name": map[string]any{"type": "string", "pattern": `^[a-z]+_[0-9]+$`}},
	}
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Go(func() {
			if err := agent.ValidateToolArguments(schema, map[string]any{"field_name": fmt.Sprintf("field_%d", i)}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if err := agent.ValidateToolArguments(schema, map[string]any{"field_name": "Field"}); err == nil {
				t.Errorf("expected pattern mismatch")
			}
		})
	}
	wg.Wait()

	broken := map[string]any{
		"properties": map[string]any{"field_name": map[string]any{"type": "string", "pattern": `([a-z`}},
	}
	for range 2 {
		if err := agent.ValidateToolArguments(broken, map[string]any{"field_name": "x"}); err == nil {
			t.Fatal("expected invalid pattern error")
		}
	}
}

func TestNormalizedToolErrorResult(t *testing.T) {
	t.Parallel()

	call := agent.ToolCall{ID: "call-1", Name: "store_requirement"}
	result := agent.NormalizedToolErrorResult(call, agent.ToolFailureReasonInvalidArguments, errors.New("bad"))
	if !result.IsError || result.Content != "invalid_arguments: bad" || result.CallID != "call-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Update != nil {
		t.Fatalf("unexpected update: %v", result.Update)
	}
}
