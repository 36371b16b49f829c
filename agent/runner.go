package agent

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Dependencies wires application services into the runtime orchestrator.
type Dependencies struct {
	IDGenerator IDGenerator
	RunStore    RunStore
	Engine      Engine
	EventSink   EventSink
}

// Runner owns the run lifecycle and persistence. The engine decides what a
// step does; the runner decides when state is loaded, saved, and announced.
type Runner struct {
	idGen  IDGenerator
	store  RunStore
	engine Engine
	events EventSink
}

func NewRunner(deps Dependencies) (*Runner, error) {
	if deps.IDGenerator == nil {
		return nil, fmt.Errorf("new runner: %w", ErrMissingIDGenerator)
	}
	if deps.RunStore == nil {
		return nil, fmt.Errorf("new runner: %w", ErrMissingRunStore)
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("new runner: %w", ErrMissingEngine)
	}
	if deps.EventSink == nil {
		deps.EventSink = NoopEventSink{}
	}
	return &Runner{
		idGen:  deps.IDGenerator,
		store:  deps.RunStore,
		engine: deps.Engine,
		events: deps.EventSink,
	}, nil
}

// Dispatch executes a typed command against the run store.
func (r *Runner) Dispatch(ctx context.Context, cmd Command) (RunResult, error) {
	if ctx == nil {
		return RunResult{}, ErrContextNil
	}
	if isNilCommand(cmd) {
		return RunResult{}, ErrCommandNil
	}
	if reflect.ValueOf(cmd).Kind() == reflect.Pointer {
		return RunResult{}, fmt.Errorf("%w: kind=%s payload=%T", ErrCommandInvalid, cmd.Kind(), cmd)
	}

	switch command := cmd.(type) {
	case StartCommand:
		return r.dispatchStart(ctx, command)
	case ContinueCommand:
		return r.dispatchContinue(ctx, command)
	case CancelCommand:
		return r.dispatchCancel(ctx, command)
	case SteerCommand:
		return r.dispatchSteer(ctx, command)
	case FollowUpCommand:
		return r.dispatchFollowUp(ctx, command)
	default:
		switch kind := cmd.Kind(); kind {
		case CommandKindStart, CommandKindContinue, CommandKindCancel, CommandKindSteer, CommandKindFollowUp:
			return RunResult{}, fmt.Errorf("%w: kind=%s payload=%T", ErrCommandInvalid, kind, cmd)
		default:
			return RunResult{}, fmt.Errorf("%w: %s", ErrCommandUnsupported, kind)
		}
	}
}

// Run executes a new run from prompts and returns final state.
func (r *Runner) Run(ctx context.Context, input RunInput) (RunResult, error) {
	return r.Dispatch(ctx, StartCommand{Input: input})
}

// Continue loads an existing run and executes additional engine steps.
func (r *Runner) Continue(ctx context.Context, runID RunID, maxSteps int, tools []ToolDefinition) (RunResult, error) {
	return r.Dispatch(ctx, ContinueCommand{RunID: runID, MaxSteps: maxSteps, Tools: tools})
}

// Cancel marks a non-terminal run as cancelled and persists the cancellation state.
func (r *Runner) Cancel(ctx context.Context, runID RunID) (RunResult, error) {
	return r.Dispatch(ctx, CancelCommand{RunID: runID})
}

// Steer appends a user instruction to a non-terminal run without engine execution.
func (r *Runner) Steer(ctx context.Context, runID RunID, instruction string) (RunResult, error) {
	return r.Dispatch(ctx, SteerCommand{RunID: runID, Instruction: instruction})
}

// FollowUp appends a user prompt to a non-terminal run and executes the engine.
func (r *Runner) FollowUp(ctx context.Context, runID RunID, prompt string, maxSteps int, tools []ToolDefinition) (RunResult, error) {
	return r.Dispatch(ctx, FollowUpCommand{
		RunID:      runID,
		UserPrompt: prompt,
		MaxSteps:   maxSteps,
		Tools:      tools,
	})
}

func (r *Runner) dispatchStart(ctx context.Context, cmd StartCommand) (RunResult, error) {
	input := cmd.Input
	runID := input.RunID
	if runID == "" {
		generated, err := r.idGen.NewRunID(ctx)
		if err != nil {
			return RunResult{}, err
		}
		if generated == "" {
			return RunResult{}, fmt.Errorf("%w: command=%s", ErrInvalidRunID, CommandKindStart)
		}
		runID = generated
	}

	state := RunState{ID: runID}
	if err := TransitionRunStatus(&state, RunStatusPending); err != nil {
		return RunResult{}, err
	}
	if input.SystemPrompt != "" {
		state.Messages = append(state.Messages, Message{Role: RoleSystem, Content: input.SystemPrompt})
	}
	if input.UserPrompt != "" {
		state.Messages = append(state.Messages, Message{Role: RoleUser, Content: input.UserPrompt})
	}
	if input.Values != nil {
		state.Values = input.Values.Clone()
	}

	if err := r.store.Save(sideEffectContext(ctx), state); err != nil {
		return RunResult{}, err
	}
	state.Version++
	eventErr := r.publish(ctx, Event{
		RunID:       runID,
		Type:        EventTypeRunStarted,
		Description: "run persisted and ready for execution",
	})

	return r.executeAndPersist(ctx, state, CommandKindStart, EngineInput{
		MaxSteps: input.MaxSteps,
		Tools:    input.Tools,
	}, eventErr)
}

func (r *Runner) dispatchContinue(ctx context.Context, cmd ContinueCommand) (RunResult, error) {
	state, err := r.loadNonTerminal(ctx, cmd.RunID, CommandKindContinue, ErrRunNotContinuable)
	if err != nil {
		return RunResult{State: state}, err
	}
	return r.executeAndPersist(ctx, state, CommandKindContinue, EngineInput{
		MaxSteps: cmd.MaxSteps,
		Tools:    cmd.Tools,
	}, nil)
}

func (r *Runner) dispatchFollowUp(ctx context.Context, cmd FollowUpCommand) (RunResult, error) {
	state, err := r.loadNonTerminal(ctx, cmd.RunID, CommandKindFollowUp, ErrRunNotContinuable)
	if err != nil {
		return RunResult{State: state}, err
	}
	state.Messages = append(state.Messages, Message{Role: RoleUser, Content: cmd.UserPrompt})
	return r.executeAndPersist(ctx, state, CommandKindFollowUp, EngineInput{
		MaxSteps: cmd.MaxSteps,
		Tools:    cmd.Tools,
	}, nil)
}

func (r *Runner) dispatchCancel(ctx context.Context, cmd CancelCommand) (RunResult, error) {
	state, err := r.loadNonTerminal(ctx, cmd.RunID, CommandKindCancel, ErrRunNotCancellable)
	if err != nil {
		return RunResult{State: state}, err
	}
	if err := TransitionRunStatus(&state, RunStatusCancelled); err != nil {
		return RunResult{State: state}, err
	}
	if err := r.store.Save(sideEffectContext(ctx), state); err != nil {
		return RunResult{}, err
	}
	state.Version++
	eventErr := errors.Join(
		r.publish(ctx, Event{
			RunID:       state.ID,
			Step:        state.Step,
			Type:        EventTypeRunCancelled,
			Description: "run cancelled",
		}),
		r.publishApplied(ctx, state, CommandKindCancel),
	)
	return RunResult{State: state}, eventErr
}

func (r *Runner) dispatchSteer(ctx context.Context, cmd SteerCommand) (RunResult, error) {
	state, err := r.loadNonTerminal(ctx, cmd.RunID, CommandKindSteer, ErrRunNotContinuable)
	if err != nil {
		return RunResult{State: state}, err
	}
	state.Messages = append(state.Messages, Message{Role: RoleUser, Content: cmd.Instruction})
	if err := r.store.Save(sideEffectContext(ctx), state); err != nil {
		return RunResult{}, err
	}
	state.Version++
	eventErr := errors.Join(
		r.publish(ctx, Event{
			RunID:       state.ID,
			Step:        state.Step,
			Type:        EventTypeRunCheckpoint,
			Description: "steered run state persisted",
		}),
		r.publishApplied(ctx, state, CommandKindSteer),
	)
	return RunResult{State: state}, eventErr
}

func (r *Runner) loadNonTerminal(ctx context.Context, runID RunID, kind CommandKind, terminalErr error) (RunState, error) {
	if runID == "" {
		return RunState{}, fmt.Errorf("%w: command=%s", ErrInvalidRunID, kind)
	}
	state, err := r.store.Load(sideEffectContext(ctx), runID)
	if err != nil {
		return RunState{}, err
	}
	if IsTerminalRunStatus(state.Status) {
		return state, fmt.Errorf("%w: %s", terminalErr, state.Status)
	}
	return state, nil
}

// executeAndPersist runs the engine over state and saves whatever it
// returns, including partial progress from failed or cancelled runs.
func (r *Runner) executeAndPersist(ctx context.Context, state RunState, kind CommandKind, input EngineInput, eventErr error) (RunResult, error) {
	finalState, runErr := r.engine.Execute(ctx, state, input)
	if contractErr := validateEngineOutput(state, finalState); contractErr != nil {
		return RunResult{}, errors.Join(contractErr, eventErr)
	}
	if saveErr := r.store.Save(sideEffectContext(ctx), finalState); saveErr != nil {
		return RunResult{}, errors.Join(runErr, saveErr, eventErr)
	}
	finalState.Version++
	eventErr = errors.Join(eventErr,
		r.publish(ctx, Event{
			RunID:       finalState.ID,
			Step:        finalState.Step,
			Type:        EventTypeRunCheckpoint,
			Description: fmt.Sprintf("%s run state persisted", kind),
		}),
		r.publishApplied(ctx, finalState, kind),
	)
	return RunResult{State: finalState}, errors.Join(runErr, eventErr)
}

func (r *Runner) publishApplied(ctx context.Context, state RunState, kind CommandKind) error {
	return r.publish(ctx, Event{
		RunID:       state.ID,
		Step:        state.Step,
		Type:        EventTypeCommandApplied,
		CommandKind: kind,
		Description: fmt.Sprintf("%s command applied", kind),
	})
}

func (r *Runner) publish(ctx context.Context, event Event) error {
	return PublishEvent(sideEffectContext(ctx), r.events, event)
}

// PublishEvent validates event and hands it to sink. Failures are wrapped
// with ErrEventPublish so callers can tell them apart from run errors.
func PublishEvent(ctx context.Context, sink EventSink, event Event) error {
	if err := ValidateEvent(event); err != nil {
		return errors.Join(ErrEventPublish, err)
	}
	if err := sink.Publish(ctx, event); err != nil {
		return errors.Join(
			ErrEventPublish,
			fmt.Errorf("type=%s run_id=%s step=%d: %w", event.Type, event.RunID, event.Step, err),
		)
	}
	return nil
}

func validateEngineOutput(prev RunState, next RunState) error {
	if next.ID != prev.ID {
		return fmt.Errorf("%w: invariant=run_id input=%q output=%q", ErrEngineOutputContractViolation, prev.ID, next.ID)
	}
	if next.Step < prev.Step {
		return fmt.Errorf("%w: invariant=step input=%d output=%d run_id=%q", ErrEngineOutputContractViolation, prev.Step, next.Step, prev.ID)
	}
	if len(next.Messages) < len(prev.Messages) {
		return fmt.Errorf(
			"%w: invariant=messages_length input=%d output=%d run_id=%q",
			ErrEngineOutputContractViolation, len(prev.Messages), len(next.Messages), prev.ID,
		)
	}
	if !reflect.DeepEqual(next.Messages[:len(prev.Messages)], prev.Messages) {
		return fmt.Errorf("%w: invariant=messages_prefix run_id=%q", ErrEngineOutputContractViolation, prev.ID)
	}
	return nil
}

func sideEffectContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	if ctx.Err() != nil {
		return context.WithoutCancel(ctx)
	}
	return ctx
}

func isNilCommand(cmd Command) bool {
	if cmd == nil {
		return true
	}
	value := reflect.ValueOf(cmd)
	return value.Kind() == reflect.Pointer && value.IsNil()
}
