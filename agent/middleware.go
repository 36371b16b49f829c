package agent

import (
	"context"

	"github.com/Gurpartap/graphfleet/state"
)

// Middleware is a named hook bundle attached to an engine. A middleware
// implements BeforeAgentHook, AfterAgentHook, or both.
type Middleware interface {
	Name() string
}

// BeforeAgentHook runs once per engine execution before the first model
// call. The returned update is reduced into the run values.
type BeforeAgentHook interface {
	Middleware
	BeforeAgent(ctx context.Context, values state.Values) (state.Update, error)
}

// AfterAgentHook runs once when an execution reaches completion or its
// step budget. It is skipped for cancelled and failed runs.
type AfterAgentHook interface {
	Middleware
	AfterAgent(ctx context.Context, values state.Values) (state.Update, error)
}
