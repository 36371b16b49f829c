package requirements

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/tooling/registry"
)

const (
	ToolStore  = "store_requirement"
	ToolForget = "forget_requirement"
	ToolList   = "get_collected_requirements"
	ToolCheck  = "check_requirement_collected"
)

// Tools returns the requirement tools. logger may be nil.
func Tools(logger *slog.Logger) []registry.Tool {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	t := toolset{logger: logger}
	fieldName := map[string]any{"type": "string", "pattern": FieldNamePattern}
	return []registry.Tool{
		{
			Definition: agent.ToolDefinition{
				Name: ToolStore,
				Description: "Store one collected requirement field. Call once per field; " +
					"many calls may run in parallel. Set delete=true to remove the field.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"field_name": fieldName,
						"value":      map[string]any{},
						"delete":     map[string]any{"type": "boolean"},
					},
					"required":             []any{"field_name"},
					"additionalProperties": false,
				},
			},
			Handler: t.store,
		},
		{
			Definition: agent.ToolDefinition{
				Name:        ToolForget,
				Description: "Remove a collected requirement field. Removing an absent field is not an error.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"field_name": fieldName,
					},
					"required":             []any{"field_name"},
					"additionalProperties": false,
				},
			},
			Handler: t.forget,
		},
		{
			Definition: agent.ToolDefinition{
				Name:        ToolList,
				Description: "List every requirement collected so far, in the order first stored.",
				InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
			},
			Handler: t.list,
		},
		{
			Definition: agent.ToolDefinition{
				Name:        ToolCheck,
				Description: "Check whether a requirement field has been collected.",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"field_name": map[string]any{"type": "string"},
					},
					"required": []any{"field_name"},
				},
			},
			Handler: t.check,
		},
	}
}

type toolset struct {
	logger *slog.Logger
}

// store emits a singleton delta. It never returns the accumulated set.
func (t toolset) store(_ context.Context, call registry.Call) (registry.Result, error) {
	name, _ := call.Arguments["field_name"].(string)
	if err := ValidateFieldName(name); err != nil {
		t.logger.Debug("store_requirement rejected", "call_id", call.ID, "err", err)
		return registry.Errorf("%v", err), nil
	}
	deleteField, err := registry.OptionalBool(call.Arguments, "delete", false)
	if err != nil {
		return registry.Errorf("%v", err), nil
	}
	if deleteField {
		return forgetResult(name), nil
	}

	raw, present := call.Arguments["value"]
	if !present || raw == nil {
		return registry.Errorf("%v: pass a value for %q or set delete=true", ErrValueRequired, name), nil
	}
	value, err := NormalizeValue(raw)
	if err != nil {
		t.logger.Debug("store_requirement rejected", "call_id", call.ID, "field", name, "err", err)
		return registry.Errorf("%v", err), nil
	}

	return registry.Result{
		Content: fmt.Sprintf("✓ Stored %s = %s", name, FormatValue(value)),
		Update:  Update(NewSet(Field{Name: name, Value: value})),
	}, nil
}

func (t toolset) forget(_ context.Context, call registry.Call) (registry.Result, error) {
	name, _ := call.Arguments["field_name"].(string)
	if err := ValidateFieldName(name); err != nil {
		return registry.Errorf("%v", err), nil
	}
	return forgetResult(name), nil
}

func forgetResult(name string) registry.Result {
	return registry.Result{
		Content: fmt.Sprintf("✓ Removed %s", name),
		Update:  Update(NewSet(Field{Name: name, Value: Tombstone})),
	}
}

func (t toolset) list(_ context.Context, call registry.Call) (registry.Result, error) {
	set := FromValues(call.State)
	if set.Len() == 0 {
		return registry.Text("No requirements collected yet."), nil
	}
	var b strings.Builder
	b.WriteString("Collected requirements:")
	for _, f := range set.Fields() {
		fmt.Fprintf(&b, "\n  - %s: %s", f.Name, FormatValue(f.Value))
	}
	return registry.Text(b.String()), nil
}

func (t toolset) check(_ context.Context, call registry.Call) (registry.Result, error) {
	name, err := registry.StringArgument(call.Arguments, "field_name")
	if err != nil {
		return registry.Errorf("%v", err), nil
	}
	value, ok := FromValues(call.State).Get(name)
	if !ok {
		return registry.Text(fmt.Sprintf("No, %s has not been collected yet", name)), nil
	}
	return registry.Text(fmt.Sprintf("Yes, %s = %s", name, FormatValue(value))), nil
}

// FormatValue renders a stored value for humans: strings verbatim, every
// other value as compact JSON.
func FormatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(encoded)
}
