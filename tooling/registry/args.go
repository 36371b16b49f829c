package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrArgumentInvalid is returned when a tool argument is missing or mistyped.
var ErrArgumentInvalid = errors.New("tool arguments are invalid")

// StringArgument returns a required, non-blank string argument.
func StringArgument(arguments map[string]any, key string) (string, error) {
	value, ok := arguments[key]
	if !ok {
		return "", fmt.Errorf("%w: missing argument %q", ErrArgumentInvalid, key)
	}
	stringValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %q must be a string", ErrArgumentInvalid, key)
	}
	if strings.TrimSpace(stringValue) == "" {
		return "", fmt.Errorf("%w: argument %q must not be empty", ErrArgumentInvalid, key)
	}
	return stringValue, nil
}

// OptionalString returns a string argument or fallback when it is absent or blank.
func OptionalString(arguments map[string]any, key, fallback string) (string, error) {
	value, ok := arguments[key]
	if !ok || value == nil {
		return fallback, nil
	}
	stringValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %q must be a string", ErrArgumentInvalid, key)
	}
	if strings.TrimSpace(stringValue) == "" {
		return fallback, nil
	}
	return stringValue, nil
}

// OptionalBool returns a boolean argument or fallback when it is absent.
func OptionalBool(arguments map[string]any, key string, fallback bool) (bool, error) {
	value, ok := arguments[key]
	if !ok || value == nil {
		return fallback, nil
	}
	boolValue, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: argument %q must be a boolean", ErrArgumentInvalid, key)
	}
	return boolValue, nil
}

// OptionalStringMap returns an object argument whose values are all strings.
func OptionalStringMap(arguments map[string]any, key string) (map[string]string, error) {
	value, ok := arguments[key]
	if !ok || value == nil {
		return nil, nil
	}
	switch typed := value.(type) {
	case map[string]string:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: argument %q entry %q must be a string", ErrArgumentInvalid, key, k)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: argument %q must be an object", ErrArgumentInvalid, key)
	}
}

// OptionalInt returns a whole-number argument or fallback when it is absent.
func OptionalInt(arguments map[string]any, key string, fallback int) (int, error) {
	value, ok := arguments[key]
	if !ok || value == nil {
		return fallback, nil
	}
	switch typed := value.(type) {
	case int:
		return typed, nil
	case int64:
		return int(typed), nil
	case float64:
		if typed != float64(int(typed)) {
			return 0, fmt.Errorf("%w: argument %q must be a whole number", ErrArgumentInvalid, key)
		}
		return int(typed), nil
	default:
		return 0, fmt.Errorf("%w: argument %q must be an integer", ErrArgumentInvalid, key)
	}
}
