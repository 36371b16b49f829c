// Package state defines named state cells whose updates are merged by
// per-cell reducers.
//
// Tools and middleware never write run state directly. They return an
// Update keyed by cell name and the engine folds every Update of a step
// through Schema.Apply. Cell values are copy-on-write: a reducer always
// returns a fresh value and committed values are never mutated in place.
package state

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrCellInvalid is returned when a schema is declared with a malformed cell.
	ErrCellInvalid = errors.New("state cell is invalid")
	// ErrReducerType is returned when a reducer receives a value of the wrong type.
	ErrReducerType = errors.New("state reducer received unexpected type")
)

// Values is a snapshot of every cell in a run, keyed by cell name.
type Values map[string]any

// Clone returns a shallow copy. Cell values themselves are shared because
// they are never mutated after commit.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	maps.Copy(out, v)
	return out
}

// Update is a partial state delta keyed by cell name.
type Update map[string]any

// Cells returns the cell names touched by the update in sorted order.
func (u Update) Cells() []string {
	return slices.Sorted(maps.Keys(u))
}

// Reducer merges a delta into the current cell value. current is nil when
// the cell has no value yet.
type Reducer func(current, delta any) (any, error)

// Cell declares a named slot and its update discipline. A nil Reducer
// means last write wins.
type Cell struct {
	Name    string
	Reducer Reducer
	Initial func() any
}

// Schema is the set of declared cells for one agent graph.
type Schema struct {
	cells map[string]Cell
	order []string
}

func NewSchema(cells ...Cell) (*Schema, error) {
	s := &Schema{cells: make(map[string]Cell, len(cells))}
	for i, cell := range cells {
		if cell.Name == "" {
			return nil, fmt.Errorf("%w: index=%d reason=empty_name", ErrCellInvalid, i)
		}
		if _, exists := s.cells[cell.Name]; exists {
			return nil, fmt.Errorf("%w: name=%q reason=duplicate", ErrCellInvalid, cell.Name)
		}
		s.cells[cell.Name] = cell
		s.order = append(s.order, cell.Name)
	}
	return s, nil
}

// Cells returns declared cell names in declaration order.
func (s *Schema) Cells() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.order)
}

// Seed returns a copy of values with every declared cell that is still
// absent set to its initial value.
func (s *Schema) Seed(values Values) Values {
	out := values.Clone()
	if s == nil {
		return out
	}
	for _, name := range s.order {
		if _, ok := out[name]; ok {
			continue
		}
		if initial := s.cells[name].Initial; initial != nil {
			out[name] = initial()
		}
	}
	return out
}

// Initial returns the initial values of all declared cells.
func (s *Schema) Initial() Values {
	return s.Seed(nil)
}

// Apply folds updates into values in order and returns the merged
// snapshot. values is not modified.
func (s *Schema) Apply(values Values, updates ...Update) (Values, error) {
	next := values.Clone()
	for _, update := range updates {
		for _, name := range update.Cells() {
			delta := update[name]
			reducer := s.reducer(name)
			if reducer == nil {
				next[name] = delta
				continue
			}
			merged, err := reducer(next[name], delta)
			if err != nil {
				return values, fmt.Errorf("reduce cell %q: %w", name, err)
			}
			next[name] = merged
		}
	}
	return next, nil
}

func (s *Schema) reducer(name string) Reducer {
	if s == nil {
		return nil
	}
	return s.cells[name].Reducer
}

// ReducerFor adapts a typed merge function to a Reducer. A nil current
// value reaches fn as the zero value of T.
func ReducerFor[T any](fn func(current, delta T) T) Reducer {
	return func(current, delta any) (any, error) {
		var cur T
		if current != nil {
			typed, ok := current.(T)
			if !ok {
				return nil, fmt.Errorf("%w: side=current got=%T want=%T", ErrReducerType, current, cur)
			}
			cur = typed
		}
		typedDelta, ok := delta.(T)
		if !ok {
			return nil, fmt.Errorf("%w: side=delta got=%T want=%T", ErrReducerType, delta, cur)
		}
		return fn(cur, typedDelta), nil
	}
}

// Lookup returns the value of a cell converted to T.
func Lookup[T any](values Values, name string) (T, bool) {
	raw, ok := values[name]
	if !ok || raw == nil {
		var zero T
		return zero, false
	}
	typed, ok := raw.(T)
	return typed, ok
}
