package requirements

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MetadataPrefix is reserved for fields written by set_manifest_metadata.
const MetadataPrefix = "_metadata_"

// FieldNamePattern is the accepted shape of a requirement field name.
const FieldNamePattern = `^[A-Za-z_][A-Za-z0-9_]*$`

var fieldNameRe = regexp.MustCompile(FieldNamePattern)

var (
	// ErrInvalidFieldName is returned for names that do not match FieldNamePattern.
	ErrInvalidFieldName = errors.New("invalid field name")
	// ErrReservedFieldName is returned for names under MetadataPrefix.
	ErrReservedFieldName = errors.New("reserved field name")
	// ErrNonSerializableValue is returned for values that cannot be encoded as JSON.
	ErrNonSerializableValue = errors.New("value is not JSON-serializable")
	// ErrValueRequired is returned when a store omits the value.
	ErrValueRequired = errors.New("value is required")
)

// ValidateFieldName checks a user-supplied field name.
func ValidateFieldName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidFieldName)
	}
	if !fieldNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q must match %s", ErrInvalidFieldName, name, FieldNamePattern)
	}
	if strings.HasPrefix(name, MetadataPrefix) {
		return fmt.Errorf("%w: %q uses prefix %q", ErrReservedFieldName, name, MetadataPrefix)
	}
	return nil
}

// NormalizeValue round-trips v through JSON so that stored values are
// plain JSON types (string, json.Number, bool, nil, []any, map[string]any).
// Numbers keep their literal text so large integers survive. Nested object
// keys come back in sorted order; only the top level of a Set keeps
// insertion order.
func NormalizeValue(v any) (any, error) {
	if IsTombstone(v) {
		return nil, fmt.Errorf("%w: tombstone is not a value", ErrNonSerializableValue)
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNonSerializableValue, err)
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNonSerializableValue, err)
	}
	return out, nil
}
