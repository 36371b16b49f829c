package requirements

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Field is one collected requirement.
type Field struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Set maps field names to JSON values in insertion order. A Set is
// immutable once built; Reduce always returns a new Set. The nil *Set is
// a valid empty set.
type Set struct {
	fields *orderedmap.OrderedMap[string, any]
}

// NewSet builds a set from fields in order. A repeated name overwrites the
// earlier value and keeps its position.
func NewSet(fields ...Field) *Set {
	s := &Set{fields: orderedmap.New[string, any]()}
	for _, f := range fields {
		s.fields.Set(f.Name, f.Value)
	}
	return s
}

// Len reports the number of fields.
func (s *Set) Len() int {
	if s == nil || s.fields == nil {
		return 0
	}
	return s.fields.Len()
}

// Get returns the value stored for name.
func (s *Set) Get(name string) (any, bool) {
	if s == nil || s.fields == nil {
		return nil, false
	}
	return s.fields.Get(name)
}

// Has reports whether name is present.
func (s *Set) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Fields returns the fields in insertion order.
func (s *Set) Fields() []Field {
	out := make([]Field, 0, s.Len())
	if s.Len() == 0 {
		return out
	}
	for pair := s.fields.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Field{Name: pair.Key, Value: pair.Value})
	}
	return out
}

// Names returns the field names in insertion order.
func (s *Set) Names() []string {
	fields := s.Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// Map returns an unordered copy of the set.
func (s *Set) Map() map[string]any {
	out := make(map[string]any, s.Len())
	for _, f := range s.Fields() {
		out[f.Name] = f.Value
	}
	return out
}

func (s *Set) clone() *Set {
	return NewSet(s.Fields()...)
}

func (s *Set) set(name string, value any) {
	s.fields.Set(name, value)
}

func (s *Set) delete(name string) {
	s.fields.Delete(name)
}

// MarshalJSON encodes the set as a JSON object in insertion order.
func (s *Set) MarshalJSON() ([]byte, error) {
	if s.Len() == 0 {
		return []byte("{}"), nil
	}
	return s.fields.MarshalJSON()
}

// Pretty renders the set as a JSON object indented by two spaces.
func (s *Set) Pretty() (string, error) {
	compact, err := s.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encode requirements: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return "", fmt.Errorf("indent requirements: %w", err)
	}
	return out.String(), nil
}
