package agentreact

import (
	"log/slog"

	"github.com/Gurpartap/graphfleet/agent"
	"github.com/Gurpartap/graphfleet/state"
)

// Option configures a ReactLoop.
type Option func(*ReactLoop)

// WithSchema declares the state cells the loop seeds and reduces into.
// Without a schema every delta overwrites its cell.
func WithSchema(schema *state.Schema) Option {
	return func(l *ReactLoop) {
		l.schema = schema
	}
}

// WithMiddleware attaches before/after-agent hooks. Hooks run in the order given.
func WithMiddleware(middleware ...agent.Middleware) Option {
	return func(l *ReactLoop) {
		for _, m := range middleware {
			if hook, ok := m.(agent.BeforeAgentHook); ok {
				l.before = append(l.before, hook)
			}
			if hook, ok := m.(agent.AfterAgentHook); ok {
				l.after = append(l.after, hook)
			}
		}
	}
}

// WithLogger sets the logger used for hook failures and dispatch tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(l *ReactLoop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMaxParallelTools bounds concurrent tool calls within a step. Zero or
// less means unbounded.
func WithMaxParallelTools(n int) Option {
	return func(l *ReactLoop) {
		l.maxParallel = n
	}
}
