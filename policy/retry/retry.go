// Package retry wraps engine dependencies with bounded, error-only retries.
package retry

import (
	"context"
	"errors"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/agentreact"
	"github.com/Gurpartap/graphfleet/state"
)

// Config controls retry behavior for wrapped model and tool execution calls.
type Config struct {
	MaxAttempts int
	ShouldRetry func(error) bool
}

// WrapModel wraps a model with deterministic, error-only retries.
func WrapModel(model agentreact.Model, cfg Config) agentreact.Model {
	if model == nil {
		return nil
	}
	return &modelWrapper{next: model, cfg: cfg}
}

type modelWrapper struct {
	next agentreact.Model
	cfg  Config
}

func (w *modelWrapper) Generate(ctx context.Context, request agentreact.ModelRequest) (agent.Message, error) {
	return do(ctx, w.cfg, func() (agent.Message, error) {
		return w.next.Generate(ctx, request)
	})
}

// WrapToolExecutor wraps a tool executor with error-only retries. Tool
// results, including error results, are never retried; only executor
// failures are.
func WrapToolExecutor(executor agentreact.ToolExecutor, cfg Config) agentreact.ToolExecutor {
	if executor == nil {
		return nil
	}
	return &toolExecutorWrapper{next: executor, cfg: cfg}
}

type toolExecutorWrapper struct {
	next agentreact.ToolExecutor
	cfg  Config
}

func (w *toolExecutorWrapper) Execute(ctx context.Context, call agent.ToolCall, view state.Values) (agent.ToolResult, error) {
	return do(ctx, w.cfg, func() (agent.ToolResult, error) {
		return w.next.Execute(ctx, call, view)
	})
}

func do[T any](ctx context.Context, cfg Config, attempt func() (T, error)) (T, error) {
	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}

	attempts := normalizedAttempts(cfg.MaxAttempts)
	var lastErr error
	for i := 1; i <= attempts; i++ {
		out, err := attempt()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if i == attempts || !shouldRetry(ctx, cfg, err) {
			break
		}
	}
	return zero, lastErr
}

func normalizedAttempts(maxAttempts int) int {
	if maxAttempts < 1 {
		return 1
	}
	return maxAttempts
}

func shouldRetry(ctx context.Context, cfg Config, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if cfg.ShouldRetry == nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return cfg.ShouldRetry(err)
}
