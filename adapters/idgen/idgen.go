// Package idgen provides run ID generators.
package idgen

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/Gurpartap/graphfleet/agent"
)

// Counter provides deterministic in-process run IDs.
type Counter struct {
	prefix  string
	counter atomic.Uint64
}

var _ agent.IDGenerator = (*Counter)(nil)

func NewCounter(prefix string) *Counter {
	if prefix == "" {
		prefix = "run"
	}
	return &Counter{prefix: prefix}
}

func (g *Counter) NewRunID(_ context.Context) (agent.RunID, error) {
	next := g.counter.Add(1)
	return agent.RunID(fmt.Sprintf("%s-%06d", g.prefix, next)), nil
}

// UUID generates random version 4 run IDs.
type UUID struct{}

var _ agent.IDGenerator = UUID{}

func (UUID) NewRunID(_ context.Context) (agent.RunID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return agent.RunID(id.String()), nil
}
