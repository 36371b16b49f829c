package agentreact

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/state"
)

// execution carries the mutable state of one Execute call. Publish
// failures accumulate in eventErr and never stop the run.
type execution struct {
	loop        *ReactLoop
	run         agent.RunState
	definitions map[string]agent.ToolDefinition
	eventErr    error
}

func (x *execution) publish(ctx context.Context, event agent.Event) {
	x.eventErr = errors.Join(x.eventErr, x.loop.publish(ctx, event))
}

// dispatch executes every call of one assistant message concurrently. Each
// call sees the same pre-step values. Results come back in call order. Only
// cancellation is returned as an error; every other failure becomes a
// normalized error result.
func (x *execution) dispatch(ctx context.Context, calls []agent.ToolCall) ([]agent.ToolResult, error) {
	values := x.run.Values
	results := make([]agent.ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	if x.loop.maxParallel > 0 {
		g.SetLimit(x.loop.maxParallel)
	}
	for i := range calls {
		call := agent.CloneToolCall(calls[i])
		g.Go(func() error {
			result, err := x.loop.executeCall(gctx, call, values.Clone(), x.definitions)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if cancellationErr := contextCancellationError(ctx, err); cancellationErr != nil {
			return nil, cancellationErr
		}
		return nil, err
	}
	return results, nil
}

func (l *ReactLoop) executeCall(
	ctx context.Context,
	call agent.ToolCall,
	view state.Values,
	definitions map[string]agent.ToolDefinition,
) (agent.ToolResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return agent.ToolResult{}, ctxErr
	}

	definition, defined := definitions[call.Name]
	if !defined {
		return agent.NormalizedToolErrorResult(
			call,
			agent.ToolFailureReasonUnknownTool,
			fmt.Errorf("tool %q is not defined", call.Name),
		), nil
	}
	if err := agent.ValidateToolArguments(definition.InputSchema, call.Arguments); err != nil {
		return agent.NormalizedToolErrorResult(call, agent.ToolFailureReasonInvalidArguments, err), nil
	}

	result, err := l.tools.Execute(ctx, call, view)
	if err != nil {
		if cancellationErr := contextCancellationError(ctx, err); cancellationErr != nil {
			return agent.ToolResult{}, cancellationErr
		}
		l.logger.Warn("tool execution failed", "tool", call.Name, "call_id", call.ID, "err", err)
		return agent.NormalizedToolErrorResult(call, agent.ToolFailureReasonExecutorError, err), nil
	}
	if identityErr := validateToolResultIdentity(call, result); identityErr != nil {
		return agent.NormalizedToolErrorResult(call, agent.ToolFailureReasonExecutorError, identityErr), nil
	}
	if result.CallID == "" {
		result.CallID = call.ID
	}
	if result.Name == "" {
		result.Name = call.Name
	}
	if result.IsError {
		result.Update = nil
	}
	return result, nil
}

func validateToolResultIdentity(call agent.ToolCall, result agent.ToolResult) error {
	if result.CallID != "" && result.CallID != call.ID {
		return fmt.Errorf("tool result call id mismatch: got=%q want=%q", result.CallID, call.ID)
	}
	if result.Name != "" && result.Name != call.Name {
		return fmt.Errorf("tool result name mismatch: got=%q want=%q", result.Name, call.Name)
	}
	return nil
}

// reduce folds updates into run values in the order given and announces
// the touched cells.
func (x *execution) reduce(ctx context.Context, source string, updates ...state.Update) error {
	var cells []string
	for _, update := range updates {
		for _, name := range update.Cells() {
			if !slices.Contains(cells, name) {
				cells = append(cells, name)
			}
		}
	}
	if len(cells) == 0 {
		return nil
	}

	next, err := x.loop.schema.Apply(x.run.Values, updates...)
	if err != nil {
		return fmt.Errorf("%w: source=%s run_id=%q step=%d: %w", ErrStateReduce, source, x.run.ID, x.run.Step, err)
	}
	x.run.Values = next

	slices.Sort(cells)
	x.publish(ctx, agent.Event{
		RunID:       x.run.ID,
		Step:        x.run.Step,
		Type:        agent.EventTypeStateUpdated,
		Cells:       cells,
		Description: source,
	})
	return nil
}

// runBeforeAgent applies before-agent hooks in registration order. A hook
// error is logged and its delta skipped; a reduce error fails the run.
func (x *execution) runBeforeAgent(ctx context.Context) error {
	for _, hook := range x.loop.before {
		update, err := hook.BeforeAgent(ctx, x.run.Values.Clone())
		if err != nil {
			x.loop.logger.Warn("before-agent hook failed", "middleware", hook.Name(), "run_id", x.run.ID, "err", err)
			continue
		}
		if err := x.reduce(ctx, hook.Name(), update); err != nil {
			return err
		}
	}
	return nil
}

// runAfterAgent applies after-agent hooks with the same error discipline
// as runBeforeAgent.
func (x *execution) runAfterAgent(ctx context.Context) error {
	for _, hook := range x.loop.after {
		update, err := hook.AfterAgent(ctx, x.run.Values.Clone())
		if err != nil {
			x.loop.logger.Warn("after-agent hook failed", "middleware", hook.Name(), "run_id", x.run.ID, "err", err)
			continue
		}
		if err := x.reduce(ctx, hook.Name(), update); err != nil {
			return err
		}
	}
	return nil
}

func (x *execution) fail(ctx context.Context, runErr error) (agent.RunState, error) {
	if runErr == nil {
		runErr = errors.New("run failed")
	}
	if transitionErr := agent.TransitionRunStatus(&x.run, agent.RunStatusFailed); transitionErr != nil {
		return x.run, errors.Join(runErr, transitionErr, x.eventErr)
	}
	x.run.Error = runErr.Error()
	x.publish(ctx, agent.Event{
		RunID:       x.run.ID,
		Step:        x.run.Step,
		Type:        agent.EventTypeRunFailed,
		Description: runErr.Error(),
	})
	return x.run, errors.Join(runErr, x.eventErr)
}

// cancel stops the run without applying in-flight deltas or after-agent hooks.
func (x *execution) cancel(ctx context.Context, runErr error) (agent.RunState, error) {
	if runErr == nil {
		runErr = context.Canceled
	}
	if transitionErr := agent.TransitionRunStatus(&x.run, agent.RunStatusCancelled); transitionErr != nil {
		return x.run, errors.Join(runErr, transitionErr, x.eventErr)
	}
	x.run.Error = runErr.Error()
	x.publish(ctx, agent.Event{
		RunID:       x.run.ID,
		Step:        x.run.Step,
		Type:        agent.EventTypeRunCancelled,
		Description: runErr.Error(),
	})
	return x.run, errors.Join(runErr, x.eventErr)
}
