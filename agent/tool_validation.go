package agent

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"sync"
)

// compiledPatterns caches schema patterns by source text.
var compiledPatterns sync.Map

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := compiledPatterns.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	actual, _ := compiledPatterns.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// IndexToolDefinitions maps definitions by tool name.
func IndexToolDefinitions(definitions []ToolDefinition) map[string]ToolDefinition {
	out := make(map[string]ToolDefinition, len(definitions))
	for i := range definitions {
		out[definitions[i].Name] = definitions[i]
	}
	return out
}

// ValidateToolArguments checks arguments against the subset of JSON schema
// the runtime understands: required, properties.type, properties.pattern
// and additionalProperties.
func ValidateToolArguments(schema map[string]any, arguments map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	required, err := parseRequiredFields(schema["required"])
	if err != nil {
		return err
	}
	for _, field := range required {
		if _, ok := arguments[field]; !ok {
			return fmt.Errorf("missing required argument %q", field)
		}
	}

	properties, hasProperties := asStringAnyMap(schema["properties"])
	additionalAllowed, err := parseAdditionalProperties(schema["additionalProperties"])
	if err != nil {
		return err
	}

	for _, key := range sortedArgumentKeys(arguments) {
		value := arguments[key]
		propertySchema, hasProperty := properties[key]
		if !hasProperty {
			if hasProperties && !additionalAllowed {
				return fmt.Errorf("unknown argument %q", key)
			}
			continue
		}

		propertyMap, ok := asStringAnyMap(propertySchema)
		if !ok {
			return errors.New(`input schema "properties" entries must be objects`)
		}
		expectedType, hasType, err := parsePropertyType(propertyMap)
		if err != nil {
			return err
		}
		if hasType && !matchesToolArgumentType(expectedType, value) {
			return fmt.Errorf("argument %q must be %q", key, expectedType)
		}
		if err := checkPattern(key, propertyMap, value); err != nil {
			return err
		}
	}

	return nil
}

// NormalizedToolErrorResult builds an error observation for a failed call.
func NormalizedToolErrorResult(call ToolCall, reason ToolFailureReason, err error) ToolResult {
	message := string(reason)
	if err != nil {
		message = fmt.Sprintf("%s: %s", reason, err.Error())
	}
	return ToolResult{
		CallID:        call.ID,
		Name:          call.Name,
		Content:       message,
		IsError:       true,
		FailureReason: reason,
	}
}

func checkPattern(key string, propertyMap map[string]any, value any) error {
	rawPattern, ok := propertyMap["pattern"]
	if !ok {
		return nil
	}
	pattern, ok := rawPattern.(string)
	if !ok {
		return errors.New(`input schema property "pattern" must be a string`)
	}
	text, ok := value.(string)
	if !ok {
		return nil
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return fmt.Errorf("input schema property %q has invalid pattern: %w", key, err)
	}
	if !re.MatchString(text) {
		return fmt.Errorf("argument %q must match %s", key, pattern)
	}
	return nil
}

func parseRequiredFields(raw any) ([]string, error) {
	switch value := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		out := make([]string, len(value))
		copy(out, value)
		return out, nil
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			field, ok := item.(string)
			if !ok {
				return nil, errors.New(`input schema "required" entries must be strings`)
			}
			out = append(out, field)
		}
		return out, nil
	default:
		return nil, errors.New(`input schema "required" must be an array`)
	}
}

func parseAdditionalProperties(raw any) (bool, error) {
	switch value := raw.(type) {
	case nil:
		return true, nil
	case bool:
		return value, nil
	default:
		return false, errors.New(`input schema "additionalProperties" must be a bool`)
	}
}

func parsePropertyType(propertyMap map[string]any) (string, bool, error) {
	rawType, ok := propertyMap["type"]
	if !ok {
		return "", false, nil
	}
	typeName, ok := rawType.(string)
	if !ok {
		return "", false, errors.New(`input schema property "type" must be a string`)
	}
	return typeName, true, nil
}

func asStringAnyMap(raw any) (map[string]any, bool) {
	value, ok := raw.(map[string]any)
	return value, ok
}

func sortedArgumentKeys(arguments map[string]any) []string {
	keys := make([]string, 0, len(arguments))
	for key := range arguments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func matchesToolArgumentType(expected string, value any) bool {
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		return isNumber(value)
	case "integer":
		return isInteger(value)
	case "object":
		if value == nil {
			return false
		}
		return reflect.TypeOf(value).Kind() == reflect.Map
	case "array":
		if value == nil {
			return false
		}
		kind := reflect.TypeOf(value).Kind()
		return kind == reflect.Array || kind == reflect.Slice
	default:
		return true
	}
}

func isNumber(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float32, float64:
		return true
	default:
		return false
	}
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return v == float64(int64(v))
	default:
		return false
	}
}
