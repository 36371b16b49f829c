package agent

import "fmt"

// ValidateEvent checks event payload invariants before publish boundaries.
func ValidateEvent(event Event) error {
	if event.Type == "" {
		return fmt.Errorf("%w: field=type reason=empty", ErrEventInvalid)
	}
	if event.RunID == "" {
		return fmt.Errorf("%w: field=run_id reason=empty type=%s", ErrEventInvalid, event.Type)
	}
	if event.Step < 0 {
		return fmt.Errorf("%w: field=step reason=negative value=%d type=%s run_id=%q", ErrEventInvalid, event.Step, event.Type, event.RunID)
	}

	invalid := func(field, reason string) error {
		return fmt.Errorf(
			"%w: field=%s reason=%s type=%s run_id=%q step=%d",
			ErrEventInvalid, field, reason, event.Type, event.RunID, event.Step,
		)
	}

	switch event.Type {
	case EventTypeCommandApplied:
		if event.CommandKind == "" {
			return invalid("command_kind", "empty")
		}
	case EventTypeAssistantMessage:
		if event.Message == nil {
			return invalid("message", "nil")
		}
	case EventTypeToolResult:
		if event.ToolResult == nil {
			return invalid("tool_result", "nil")
		}
		if event.ToolResult.CallID == "" {
			return invalid("tool_result.call_id", "empty")
		}
		if event.ToolResult.Name == "" {
			return invalid("tool_result.name", "empty")
		}
	case EventTypeStateUpdated:
		if len(event.Cells) == 0 {
			return invalid("cells", "empty")
		}
		for _, cell := range event.Cells {
			if cell == "" {
				return invalid("cells", "empty_name")
			}
		}
	}

	return nil
}
