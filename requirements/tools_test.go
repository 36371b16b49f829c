package requirements_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/requirements"
	"github.com/Gurpartap/graphfleet/state"
	"github.com/Gurpartap/graphfleet/tooling/registry"
)

func newRequirementTools(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New(requirements.Tools(nil)...)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return r
}

func call(t *testing.T, r *registry.Registry, name string, args map[string]any, set *requirements.Set) agent.ToolResult {
	t.Helper()
	result, err := r.Execute(
		context.Background(),
		agent.ToolCall{ID: "call-1", Name: name, Arguments: args},
		state.Values{requirements.CellName: set},
	)
	if err != nil {
		t.Fatalf("execute %s: %v", name, err)
	}
	return result
}

func deltaOf(t *testing.T, result agent.ToolResult) *requirements.Set {
	t.Helper()
	raw, ok := result.Update[requirements.CellName]
	if !ok {
		t.Fatalf("expected requirements delta, got update %v", result.Update)
	}
	return raw.(*requirements.Set)
}

func TestStoreRequirement_ReturnsSingletonDelta(t *testing.T) {
	t.Parallel()

	r := newRequirementTools(t)
	existing := requirements.NewSet(requirements.Field{Name: "engine", Value: "postgres"})
	result := call(t, r, requirements.ToolStore, map[string]any{
		"field_name": "region",
		"value":      "us-west-2",
	}, existing)

	if result.IsError {
		t.Fatalf("unexpected error result: %q", result.Content)
	}
	if diff := cmp.Diff([]string{requirements.CellName}, result.Update.Cells()); diff != "" {
		t.Fatalf("unexpected cells (-want +got):\n%s", diff)
	}
	want := []requirements.Field{{Name: "region", Value: "us-west-2"}}
	if diff := cmp.Diff(want, deltaOf(t, result).Fields()); diff != "" {
		t.Fatalf("unexpected delta (-want +got):\n%s", diff)
	}
	if !strings.Contains(result.Content, "region = us-west-2") {
		t.Fatalf("unexpected content: %q", result.Content)
	}
}

func TestStoreRequirement_NormalizesStructuredValues(t *testing.T) {
	t.Parallel()

	r := newRequirementTools(t)
	result := call(t, r, requirements.ToolStore, map[string]any{
		"field_name": "tags",
		"value":      map[string]any{"team": "data", "count": 3},
	}, nil)
	want := []requirements.Field{{Name: "tags", Value: map[string]any{"team": "data", "count": json.Number("3")}}}
	if diff := cmp.Diff(want, deltaOf(t, result).Fields()); diff != "" {
		t.Fatalf("unexpected delta (-want +got):\n%s", diff)
	}
}

func TestStoreRequirement_KeepsLargeIntegersExact(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value any
	}{
		{name: "json number", value: json.Number("9007199254740993")},
		{name: "int64", value: int64(9007199254740993)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := newRequirementTools(t)
			result := call(t, r, requirements.ToolStore, map[string]any{"field_name": "snapshot_id", "value": tc.value}, nil)
			if want := "✓ Stored snapshot_id = 9007199254740993"; result.Content != want {
				t.Fatalf("unexpected content: got=%q want=%q", result.Content, want)
			}
			pretty, err := deltaOf(t, result).Pretty()
			if err != nil {
				t.Fatalf("pretty: %v", err)
			}
			if want := "{\n  \"snapshot_id\": 9007199254740993\n}"; pretty != want {
				t.Fatalf("unexpected projection: got=%q want=%q", pretty, want)
			}
		})
	}
}

func TestStoreRequirement_NestedKeysRenderSorted(t *testing.T) {
	t.Parallel()

	r := newRequirementTools(t)
	result := call(t, r, requirements.ToolStore, map[string]any{
		"field_name": "backup",
		"value":      map[string]any{"window": "03:00-04:00", "retention": 7},
	}, nil)
	pretty, err := deltaOf(t, result).Pretty()
	if err != nil {
		t.Fatalf("pretty: %v", err)
	}
	want := "{\n  \"backup\": {\n    \"retention\": 7,\n    \"window\": \"03:00-04:00\"\n  }\n}"
	if pretty != want {
		t.Fatalf("unexpected projection: got=%q want=%q", pretty, want)
	}
}

func TestStoreRequirement_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "empty field name", args: map[string]any{"field_name": "", "value": "x"}, want: "Error: "},
		{name: "reserved prefix", args: map[string]any{"field_name": "_metadata_name", "value": "x"}, want: requirements.ErrReservedFieldName.Error()},
		{name: "missing value", args: map[string]any{"field_name": "engine"}, want: requirements.ErrValueRequired.Error()},
		{name: "null value", args: map[string]any{"field_name": "engine", "value": nil}, want: requirements.ErrValueRequired.Error()},
		{name: "not serializable", args: map[string]any{"field_name": "ratio", "value": math.NaN()}, want: requirements.ErrNonSerializableValue.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := newRequirementTools(t)
			result := call(t, r, requirements.ToolStore, tc.args, requirements.NewSet())
			if !result.IsError {
				t.Fatalf("expected error result, got %q", result.Content)
			}
			if !strings.Contains(result.Content, tc.want) {
				t.Fatalf("unexpected content: got=%q want substring %q", result.Content, tc.want)
			}
			if len(result.Update) != 0 {
				t.Fatalf("unexpected update on error: %v", result.Update)
			}
		})
	}
}

func TestStoreRequirement_EmptyNameLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	schema, err := state.NewSchema(requirements.Cell())
	if err != nil {
		t.Fatalf("unexpected schema error: %v", err)
	}
	values := schema.Initial()
	values, err = schema.Apply(values, requirements.Update(single("engine", "postgres")))
	if err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}

	r := newRequirementTools(t)
	result, err := r.Execute(context.Background(), agent.ToolCall{
		ID:        "call-1",
		Name:      requirements.ToolStore,
		Arguments: map[string]any{"field_name": "", "value": "x"},
	}, values)
	if err != nil {
		t.Fatalf("unexpected execute error: %v", err)
	}
	if !result.IsError || !strings.HasPrefix(result.Content, "Error: ") {
		t.Fatalf("expected error string, got %+v", result)
	}

	next, err := schema.Apply(values, result.Update)
	if err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
	want := []requirements.Field{{Name: "engine", Value: "postgres"}}
	if diff := cmp.Diff(want, requirements.FromValues(next).Fields()); diff != "" {
		t.Fatalf("unexpected set (-want +got):\n%s", diff)
	}
}

func TestStoreRequirement_DeleteFlagEmitsTombstone(t *testing.T) {
	t.Parallel()

	r := newRequirementTools(t)
	result := call(t, r, requirements.ToolStore, map[string]any{
		"field_name": "engine",
		"delete":     true,
	}, nil)
	value, ok := deltaOf(t, result).Get("engine")
	if !ok || !requirements.IsTombstone(value) {
		t.Fatalf("expected tombstone delta, got %v", value)
	}
}

func TestForgetRequirement_AbsentFieldIsNoop(t *testing.T) {
	t.Parallel()

	r := newRequirementTools(t)
	existing := requirements.NewSet(requirements.Field{Name: "engine", Value: "postgres"})
	result := call(t, r, requirements.ToolForget, map[string]any{"field_name": "region"}, existing)
	if result.IsError {
		t.Fatalf("unexpected error result: %q", result.Content)
	}

	got := requirements.Reduce(existing, deltaOf(t, result))
	if diff := cmp.Diff(existing.Fields(), got.Fields()); diff != "" {
		t.Fatalf("unexpected set (-want +got):\n%s", diff)
	}
}

func TestListAndCheckRequirements(t *testing.T) {
	t.Parallel()

	r := newRequirementTools(t)
	empty := call(t, r, requirements.ToolList, nil, nil)
	if empty.Content != "No requirements collected yet." {
		t.Fatalf("unexpected empty listing: %q", empty.Content)
	}

	set := requirements.NewSet(
		requirements.Field{Name: "engine", Value: "postgres"},
		requirements.Field{Name: "storage_gb", Value: float64(100)},
	)
	listing := call(t, r, requirements.ToolList, nil, set)
	want := "Collected requirements:\n  - engine: postgres\n  - storage_gb: 100"
	if listing.Content != want {
		t.Fatalf("unexpected listing: got=%q want=%q", listing.Content, want)
	}

	yes := call(t, r, requirements.ToolCheck, map[string]any{"field_name": "engine"}, set)
	if yes.Content != "Yes, engine = postgres" {
		t.Fatalf("unexpected check: %q", yes.Content)
	}
	no := call(t, r, requirements.ToolCheck, map[string]any{"field_name": "region"}, set)
	if no.Content != "No, region has not been collected yet" {
		t.Fatalf("unexpected check: %q", no.Content)
	}
}

func TestValidateFieldName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "a/b", "1abc", "with space"} {
		if err := requirements.ValidateFieldName(name); !errors.Is(err, requirements.ErrInvalidFieldName) {
			t.Fatalf("unexpected error for %q: got=%v want=%v", name, err, requirements.ErrInvalidFieldName)
		}
	}
	if err := requirements.ValidateFieldName("_metadata_labels"); !errors.Is(err, requirements.ErrReservedFieldName) {
		t.Fatalf("unexpected error: got=%v want=%v", err, requirements.ErrReservedFieldName)
	}
	if err := requirements.ValidateFieldName("db_engine"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
