// Package inmem keeps run state in process memory. Saves are guarded by
// optimistic version checks so concurrent commands on one run cannot
// silently overwrite each other.
package inmem

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Gurpartap/graphfleet/agent"
)

// Store persists run state in memory with optimistic version checks.
type Store struct {
	mu     sync.RWMutex
	states map[agent.RunID]agent.RunState
}

var _ agent.RunStore = (*Store)(nil)

func New() *Store {
	return &Store{states: map[agent.RunID]agent.RunState{}}
}

func (s *Store) Save(ctx context.Context, state agent.RunState) error {
	if ctx == nil {
		return agent.ErrContextNil
	}
	if err := agent.ValidateRunState(state); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.states[state.ID]
	expected := int64(0)
	if exists {
		expected = current.Version
	}
	if state.Version != expected {
		return fmt.Errorf(
			"%w: run %q expected version %d, got %d",
			agent.ErrRunVersionConflict,
			state.ID,
			expected,
			state.Version,
		)
	}

	next := agent.CloneRunState(state)
	next.Version = expected + 1
	s.states[state.ID] = next
	return nil
}

func (s *Store) Load(ctx context.Context, runID agent.RunID) (agent.RunState, error) {
	if ctx == nil {
		return agent.RunState{}, agent.ErrContextNil
	}
	if runID == "" {
		return agent.RunState{}, fmt.Errorf("%w: field=run_id reason=empty", agent.ErrInvalidRunID)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[runID]
	if !ok {
		return agent.RunState{}, fmt.Errorf("%w: %s", agent.ErrRunNotFound, runID)
	}
	return agent.CloneRunState(state), nil
}

// IDs lists stored run IDs in lexical order.
func (s *Store) IDs() []agent.RunID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]agent.RunID, 0, len(s.states))
	for id := range s.states {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
