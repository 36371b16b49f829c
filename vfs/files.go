package vfs

import (
	"maps"
	"slices"

	"github.com/Gurpartap/graphfleet/state"
)

// CellName is the state cell holding the virtual filesystem.
const CellName = "files"

// Files maps absolute paths to entries. An entry is usually a FileRecord
// or a string; other shapes are carried through untouched. In a delta a
// nil entry deletes the path.
type Files map[string]any

// Paths returns the paths in lexical order.
func (f Files) Paths() []string {
	return slices.Sorted(maps.Keys(f))
}

// Reduce merges right into left path by path. With no left value nil
// entries are dropped; otherwise a nil entry deletes and anything else
// replaces the whole file.
func Reduce(left, right Files) Files {
	if left == nil {
		out := make(Files, len(right))
		for path, entry := range right {
			if entry != nil {
				out[path] = entry
			}
		}
		return out
	}

	out := maps.Clone(left)
	for path, entry := range right {
		if entry == nil {
			delete(out, path)
			continue
		}
		out[path] = entry
	}
	return out
}

// Cell declares the files cell with Reduce as its update rule.
func Cell() state.Cell {
	return state.Cell{
		Name:    CellName,
		Reducer: state.ReducerFor(Reduce),
		Initial: func() any { return Files{} },
	}
}

// Update wraps a files delta.
func Update(delta Files) state.Update {
	return state.Update{CellName: delta}
}

// FromValues returns the committed files map, or an empty one. Callers
// must not mutate the result.
func FromValues(values state.Values) Files {
	files, ok := state.Lookup[Files](values, CellName)
	if !ok || files == nil {
		return Files{}
	}
	return files
}
