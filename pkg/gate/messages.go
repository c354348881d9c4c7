package gate

import (
	"fmt"
	"strings"
)

// failureMessage describes why the lock failed for the observed value.
// It is a pure function of the lock and the value.
func (l *Lock) failureMessage(value any) string {
	switch l.Type {
	case LockExists:
		if isFalse(l.Expected) {
			return fmt.Sprintf("Property '%s' should not exist but has value: %v", l.PropertyPath, value)
		}
		return fmt.Sprintf("Property '%s' is required but missing or empty", l.PropertyPath)

	case LockEquals:
		return fmt.Sprintf("Property '%s' should equal '%v' but is '%v'", l.PropertyPath, l.Expected, value)

	case LockGreaterThan:
		return fmt.Sprintf("Property '%s' should be greater than %v but is %v", l.PropertyPath, l.Expected, value)

	case LockLessThan:
		return fmt.Sprintf("Property '%s' should be less than %v but is %v", l.PropertyPath, l.Expected, value)

	case LockRegex:
		return fmt.Sprintf("Property '%s' should match pattern '%v' but is '%v'", l.PropertyPath, l.Expected, value)

	case LockInList:
		return fmt.Sprintf("Property '%s' should be one of %v but is '%v'", l.PropertyPath, l.Expected, value)

	case LockNotInList:
		return fmt.Sprintf("Property '%s' should not be one of %v but is '%v'", l.PropertyPath, l.Expected, value)

	case LockContains:
		return fmt.Sprintf("Property '%s' should contain '%v' but is '%v'", l.PropertyPath, l.Expected, value)

	case LockTypeCheck:
		return fmt.Sprintf("Property '%s' should be of type '%v' but is '%s' with value '%v'",
			l.PropertyPath, l.Expected, typeName(value), value)

	case LockRange:
		if min, max, ok := rangeBounds(l.Expected); ok {
			return fmt.Sprintf("Property '%s' should be between %v and %v but is %v",
				l.PropertyPath, trimFloat(min), trimFloat(max), value)
		}
		return fmt.Sprintf("Property '%s' should be within range %v but is %v", l.PropertyPath, l.Expected, value)

	case LockLength:
		length, _ := lengthOf(value)
		if bounds, ok := l.Expected.(map[string]any); ok {
			return fmt.Sprintf("Property '%s' should have length %s but has length %d",
				l.PropertyPath, describeLengthBounds(bounds), length)
		}
		return fmt.Sprintf("Property '%s' should have length %v but has length %d", l.PropertyPath, l.Expected, length)

	case LockNotEmpty:
		return fmt.Sprintf("Property '%s' should not be empty but is '%v'", l.PropertyPath, value)

	case LockCustom:
		return fmt.Sprintf("Custom validation '%s' failed for property '%s'", l.ValidatorName, l.PropertyPath)
	}

	return fmt.Sprintf("Validation failed for property '%s'", l.PropertyPath)
}

// actionMessage suggests the remediation that would make the lock pass.
func (l *Lock) actionMessage(value any) string {
	switch l.Type {
	case LockExists:
		if isFalse(l.Expected) {
			return fmt.Sprintf("Remove property: %s", l.PropertyPath)
		}
		return fmt.Sprintf("Set missing field: %s", l.PropertyPath)

	case LockEquals:
		return fmt.Sprintf("Set %s to '%v'", l.PropertyPath, l.Expected)

	case LockGreaterThan:
		return fmt.Sprintf("Increase %s to be greater than %v", l.PropertyPath, l.Expected)

	case LockLessThan:
		return fmt.Sprintf("Decrease %s to be less than %v", l.PropertyPath, l.Expected)

	case LockRegex:
		return fmt.Sprintf("Update %s to match pattern: %v", l.PropertyPath, l.Expected)

	case LockInList:
		return fmt.Sprintf("Set %s to one of: %s", l.PropertyPath, joinValues(l.Expected))

	case LockNotInList:
		return fmt.Sprintf("Change %s from restricted value", l.PropertyPath)

	case LockContains:
		return fmt.Sprintf("Ensure %s contains '%v'", l.PropertyPath, l.Expected)

	case LockTypeCheck:
		return fmt.Sprintf("Change %s to be of type %v", l.PropertyPath, l.Expected)

	case LockRange:
		if min, max, ok := rangeBounds(l.Expected); ok {
			return fmt.Sprintf("Set %s to a value between %v and %v", l.PropertyPath, trimFloat(min), trimFloat(max))
		}
		return fmt.Sprintf("Set %s to a value within range %v", l.PropertyPath, l.Expected)

	case LockLength:
		if bounds, ok := l.Expected.(map[string]any); ok {
			return fmt.Sprintf("Adjust %s to have %s elements/characters", l.PropertyPath, describeLengthBounds(bounds))
		}
		if _, ok := l.Expected.([]any); ok {
			return fmt.Sprintf("Adjust %s length to match %v", l.PropertyPath, l.Expected)
		}
		return fmt.Sprintf("Adjust %s to have exactly %v elements/characters", l.PropertyPath, l.Expected)

	case LockNotEmpty:
		return fmt.Sprintf("Provide a non-empty value for %s", l.PropertyPath)

	case LockCustom:
		return fmt.Sprintf("Fix custom validation for %s", l.PropertyPath)
	}

	return fmt.Sprintf("Fix validation for %s", l.PropertyPath)
}

// describeLengthBounds renders a {min, max} constraint map for messages,
// e.g. "at least 2 and at most 5".
func describeLengthBounds(bounds map[string]any) string {
	var parts []string
	if min, ok := bounds["min"]; ok {
		parts = append(parts, fmt.Sprintf("at least %v", min))
	}
	if max, ok := bounds["max"]; ok {
		parts = append(parts, fmt.Sprintf("at most %v", max))
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, " and ")
}

// joinValues renders a list's items comma separated for action messages.
func joinValues(expected any) string {
	list, ok := expected.([]any)
	if !ok {
		return fmt.Sprintf("%v", expected)
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = fmt.Sprintf("%v", item)
	}
	return strings.Join(parts, ", ")
}

// trimFloat renders whole floats without the trailing ".0" style noise, so
// bounds read as written in the definition.
func trimFloat(f float64) any {
	if f == float64(int64(f)) {
		return int64(f)
	}
	return f
}
