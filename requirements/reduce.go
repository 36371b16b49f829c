// Package requirements collects user requirements for manifest generation.
//
// The authoritative store is the collected_requirements state cell. Tools
// contribute singleton deltas that Reduce merges field by field, so any
// number of store_requirement calls in one step compose without losing
// writes. /requirements.json in the virtual filesystem is a projection of
// the cell maintained by Initializer and Serializer.
package requirements

import (
	"github.com/Gurpartap/graphfleet/state"
)

// CellName is the state cell holding the collected requirements.
const CellName = "collected_requirements"

type tombstone struct{}

func (tombstone) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Tombstone marks a field for deletion inside a delta. JSON decoding can
// never produce it, so it cannot collide with a stored value.
var Tombstone any = tombstone{}

// IsTombstone reports whether v is the deletion marker.
func IsTombstone(v any) bool {
	_, ok := v.(tombstone)
	return ok
}

// Reduce merges right into left with per-field last-writer-wins. Neither
// argument is modified.
func Reduce(left, right *Set) *Set {
	if left == nil {
		out := NewSet()
		for _, f := range right.Fields() {
			if !IsTombstone(f.Value) {
				out.set(f.Name, f.Value)
			}
		}
		return out
	}

	out := left.clone()
	for _, f := range right.Fields() {
		if IsTombstone(f.Value) {
			out.delete(f.Name)
			continue
		}
		out.set(f.Name, f.Value)
	}
	return out
}

// Cell declares collected_requirements with Reduce as its update rule.
func Cell() state.Cell {
	return state.Cell{
		Name:    CellName,
		Reducer: state.ReducerFor(Reduce),
		Initial: func() any { return NewSet() },
	}
}

// Update wraps a delta set for the requirements cell.
func Update(delta *Set) state.Update {
	return state.Update{CellName: delta}
}

// FromValues returns the committed set in values, or an empty set.
func FromValues(values state.Values) *Set {
	set, ok := state.Lookup[*Set](values, CellName)
	if !ok || set == nil {
		return NewSet()
	}
	return set
}
