package agentreact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/state"
)

const DefaultMaxSteps = 8

// ReactLoop executes a ReAct sequence:
// model -> parallel tool calls -> reduced state + observations -> model -> ...
type ReactLoop struct {
	model       Model
	tools       ToolExecutor
	events      agent.EventSink
	schema      *state.Schema
	before      []agent.BeforeAgentHook
	after       []agent.AfterAgentHook
	logger      *slog.Logger
	maxParallel int
}

func New(model Model, tools ToolExecutor, events agent.EventSink, opts ...Option) (*ReactLoop, error) {
	if model == nil {
		return nil, fmt.Errorf("new react loop: %w", ErrMissingModel)
	}
	if tools == nil {
		return nil, fmt.Errorf("new react loop: %w", ErrMissingToolExecutor)
	}
	if events == nil {
		events = agent.NoopEventSink{}
	}
	l := &ReactLoop{
		model:  model,
		tools:  tools,
		events: events,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *ReactLoop) Execute(ctx context.Context, run agent.RunState, input agent.EngineInput) (agent.RunState, error) {
	if ctx == nil {
		return run, agent.ErrContextNil
	}
	if err := agent.ValidateRunState(run); err != nil {
		return run, err
	}

	maxSteps := input.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if err := agent.TransitionRunStatus(&run, agent.RunStatusRunning); err != nil {
		return run, err
	}
	run.Values = l.schema.Seed(run.Values)

	x := &execution{
		loop:        l,
		run:         run,
		definitions: agent.IndexToolDefinitions(input.Tools),
	}
	if err := x.runBeforeAgent(ctx); err != nil {
		return x.fail(ctx, err)
	}

	for x.run.Step < maxSteps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return x.cancel(ctx, ctxErr)
		}

		x.run.Step++

		assistant, err := l.model.Generate(ctx, ModelRequest{
			Messages: agent.CloneMessages(x.run.Messages),
			Tools:    agent.CloneToolDefinitions(input.Tools),
		})
		if err != nil {
			if cancellationErr := contextCancellationError(ctx, err); cancellationErr != nil {
				return x.cancel(ctx, cancellationErr)
			}
			return x.fail(ctx, fmt.Errorf("model error: %w", err))
		}
		if assistant.Role == "" {
			assistant.Role = agent.RoleAssistant
		}
		x.run.Messages = append(x.run.Messages, agent.CloneMessage(assistant))
		x.publish(ctx, agent.Event{
			RunID:   x.run.ID,
			Step:    x.run.Step,
			Type:    agent.EventTypeAssistantMessage,
			Message: &assistant,
		})

		if len(assistant.ToolCalls) == 0 {
			if err := x.runAfterAgent(ctx); err != nil {
				return x.fail(ctx, err)
			}
			if err := agent.TransitionRunStatus(&x.run, agent.RunStatusCompleted); err != nil {
				return x.run, errors.Join(err, x.eventErr)
			}
			x.run.Output = assistant.Content
			x.publish(ctx, agent.Event{
				RunID:       x.run.ID,
				Step:        x.run.Step,
				Type:        agent.EventTypeRunCompleted,
				Description: "assistant returned a final answer",
			})
			return x.run, x.eventErr
		}
		if err := validateToolCallShape(assistant.ToolCalls); err != nil {
			return x.fail(ctx, err)
		}

		results, err := x.dispatch(ctx, assistant.ToolCalls)
		if err != nil {
			return x.cancel(ctx, err)
		}

		updates := make([]state.Update, 0, len(results))
		for i := range results {
			result := results[i]
			x.run.Messages = append(x.run.Messages, agent.ToolResultMessage(result))
			x.publish(ctx, agent.Event{
				RunID:      x.run.ID,
				Step:       x.run.Step,
				Type:       agent.EventTypeToolResult,
				ToolResult: &result,
			})
			if len(result.Update) > 0 {
				updates = append(updates, result.Update)
			}
		}
		if err := x.reduce(ctx, "tools", updates...); err != nil {
			return x.fail(ctx, err)
		}
	}

	if err := agent.TransitionRunStatus(&x.run, agent.RunStatusMaxStepsExceeded); err != nil {
		return x.run, errors.Join(agent.ErrMaxStepsExceeded, err, x.eventErr)
	}
	hookErr := x.runAfterAgent(ctx)
	if hookErr != nil {
		l.logger.Error("after-agent reduce failed at step budget", "run_id", x.run.ID, "err", hookErr)
	}
	x.run.Error = agent.ErrMaxStepsExceeded.Error()
	x.publish(ctx, agent.Event{
		RunID:       x.run.ID,
		Step:        x.run.Step,
		Type:        agent.EventTypeRunFailed,
		Description: agent.ErrMaxStepsExceeded.Error(),
	})
	return x.run, errors.Join(agent.ErrMaxStepsExceeded, hookErr, x.eventErr)
}

// publish detaches from cancellation so terminal events of a cancelled run
// still reach the sink.
func (l *ReactLoop) publish(ctx context.Context, event agent.Event) error {
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	return agent.PublishEvent(ctx, l.events, event)
}

func contextCancellationError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	switch {
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	default:
		return nil
	}
}

func validateToolCallShape(calls []agent.ToolCall) error {
	seen := make(map[string]int, len(calls))
	for i, call := range calls {
		if call.ID == "" {
			return fmt.Errorf("%w: index=%d reason=empty_id", ErrToolCallInvalid, i)
		}
		if call.Name == "" {
			return fmt.Errorf("%w: index=%d id=%q reason=empty_name", ErrToolCallInvalid, i, call.ID)
		}
		if firstIndex, exists := seen[call.ID]; exists {
			return fmt.Errorf(
				"%w: index=%d id=%q reason=duplicate_id first_index=%d",
				ErrToolCallInvalid,
				i,
				call.ID,
				firstIndex,
			)
		}
		seen[call.ID] = i
	}
	return nil
}
