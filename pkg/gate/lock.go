// Package gate implements the boolean rule layer of stagegate: atomic
// predicates over property paths (locks), a named registry of custom
// validator functions, and short-circuiting conjunctive compositions of
// locks and nested gates.
package gate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stagegate/stagegate/pkg/element"
	"github.com/stagegate/stagegate/pkg/errors"
)

// LockType identifies the predicate a Lock applies to its property.
// The set is closed; validation dispatches exhaustively over it.
type LockType string

const (
	// LockExists requires the property to exist and be non-empty
	// (expected false inverts the check).
	LockExists LockType = "exists"
	// LockEquals requires plain value equality with the expected value.
	LockEquals LockType = "equals"
	// LockGreaterThan requires the value, coerced to a number, to exceed the expected value.
	LockGreaterThan LockType = "greater_than"
	// LockLessThan requires the value, coerced to a number, to be below the expected value.
	LockLessThan LockType = "less_than"
	// LockContains requires a substring for strings, membership for containers.
	LockContains LockType = "contains"
	// LockRegex requires a string value matching the pattern anchored at its start.
	LockRegex LockType = "regex"
	// LockTypeCheck requires the value to have the named type.
	LockTypeCheck LockType = "type_check"
	// LockRange requires a numeric value inside an inclusive [min, max] pair.
	LockRange LockType = "range"
	// LockLength constrains the length of a string or collection.
	LockLength LockType = "length"
	// LockNotEmpty requires a non-empty value (strings are trimmed first).
	LockNotEmpty LockType = "not_empty"
	// LockInList requires membership in the expected list.
	LockInList LockType = "in_list"
	// LockNotInList requires absence from the expected list.
	LockNotInList LockType = "not_in_list"
	// LockCustom dispatches to a named validator in the Registry.
	LockCustom LockType = "custom"
)

// lockTypes holds every LockType in declaration order.
var lockTypes = []LockType{
	LockExists, LockEquals, LockGreaterThan, LockLessThan, LockContains,
	LockRegex, LockTypeCheck, LockRange, LockLength, LockNotEmpty,
	LockInList, LockNotInList, LockCustom,
}

// Valid reports whether t is one of the defined lock types.
func (t LockType) Valid() bool {
	for _, known := range lockTypes {
		if t == known {
			return true
		}
	}
	return false
}

// requiresExpected reports whether the lock type needs a non-nil expected
// value at construction. Exists, not_empty and custom locks do not.
func (t LockType) requiresExpected() bool {
	switch t {
	case LockExists, LockNotEmpty, LockCustom:
		return false
	default:
		return true
	}
}

// LockTypes returns every defined lock type in declaration order.
func LockTypes() []LockType {
	out := make([]LockType, len(lockTypes))
	copy(out, lockTypes)
	return out
}

// Lock is an atomic predicate over one property path.
// Locks are immutable once built; callers must not mutate the fields.
type Lock struct {
	// PropertyPath addresses the value under test.
	PropertyPath string

	// Type selects the predicate.
	Type LockType

	// Expected is the comparison operand; required for comparison-style types.
	Expected any

	// ValidatorName names the Registry entry for custom locks.
	ValidatorName string

	// Metadata is carried into every ValidationResult unchanged.
	Metadata map[string]any
}

// NewLock builds a Lock and checks its configuration: the path must be
// non-empty, comparison-style types need an expected value, and the type
// must be one of the defined kinds.
func NewLock(path string, typ LockType, expected any) (*Lock, error) {
	if path == "" {
		return nil, &errors.ValidationError{
			Field:      "property_path",
			Message:    "property path cannot be empty",
			Suggestion: "Provide the dotted path of the property to validate",
		}
	}
	if !typ.Valid() {
		return nil, &errors.ValidationError{
			Field:   "lock_type",
			Message: fmt.Sprintf("unknown lock type %q", typ),
		}
	}
	if typ.requiresExpected() && expected == nil {
		return nil, &errors.ValidationError{
			Field:      "expected_value",
			Message:    fmt.Sprintf("lock type %s requires expected_value", typ),
			Suggestion: "Set the value the property is compared against",
		}
	}
	return &Lock{PropertyPath: path, Type: typ, Expected: expected}, nil
}

// NewCustomLock builds a custom Lock dispatching to the named validator.
// The expected value is passed through to the validator and may be nil.
func NewCustomLock(path, validatorName string, expected any) (*Lock, error) {
	if validatorName == "" {
		return nil, &errors.ValidationError{
			Field:      "validator_name",
			Message:    "custom lock requires validator_name",
			Suggestion: "Register a validator and reference it by name",
		}
	}
	lock, err := NewLock(path, LockCustom, expected)
	if err != nil {
		return nil, err
	}
	lock.ValidatorName = validatorName
	return lock, nil
}

// ValidationResult reports the outcome of validating one Lock.
type ValidationResult struct {
	Success       bool           `json:"success"`
	PropertyPath  string         `json:"property_path"`
	LockType      LockType       `json:"lock_type"`
	ActualValue   any            `json:"actual_value,omitempty"`
	ExpectedValue any            `json:"expected_value,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	ActionMessage string         `json:"action_message,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Validate resolves the lock's property against the element and applies the
// predicate. It is total: a missing property, a wrong-typed value, a
// malformed expected value, or a faulting custom validator all produce a
// failed result, never a panic or an error.
//
// A missing property passes only for exists locks with Expected == false;
// every other type fails. The validators registry is consulted for custom
// locks only; a nil registry or an unregistered name is a clean failure.
func (l *Lock) Validate(el element.Element, validators *Registry) ValidationResult {
	res := ValidationResult{
		PropertyPath:  l.PropertyPath,
		LockType:      l.Type,
		ExpectedValue: l.Expected,
		Metadata:      copyMetadata(l.Metadata),
	}

	value, found := el.GetProperty(l.PropertyPath)
	if !found {
		if l.Type == LockExists && isFalse(l.Expected) {
			res.Success = true
			return res
		}
		res.ErrorMessage = l.failureMessage(nil)
		res.ActionMessage = l.actionMessage(nil)
		return res
	}

	res.ActualValue = value
	if l.check(value, validators) {
		res.Success = true
		return res
	}
	res.ErrorMessage = l.failureMessage(value)
	res.ActionMessage = l.actionMessage(value)
	return res
}

// PropertyPaths returns the single path this lock inspects.
// It is part of the Component interface shared with Gate.
func (l *Lock) PropertyPaths() []string {
	return []string{l.PropertyPath}
}

// evaluate adapts Validate to the Component interface.
func (l *Lock) evaluate(el element.Element, validators *Registry) componentOutcome {
	res := l.Validate(el, validators)
	out := componentOutcome{passed: res.Success}
	if !res.Success {
		out.messages = []string{res.ErrorMessage}
		out.actions = []string{res.ActionMessage}
	}
	return out
}

// check applies the predicate to a resolved value.
func (l *Lock) check(value any, validators *Registry) bool {
	if l.Type == LockExists {
		if isFalse(l.Expected) {
			return isEmptyValue(value)
		}
		return !isEmptyValue(value)
	}

	// Null never satisfies any non-exists predicate.
	if value == nil {
		return false
	}

	switch l.Type {
	case LockEquals:
		return valueEquals(value, l.Expected)

	case LockGreaterThan:
		actual, ok1 := toFloat(value)
		expected, ok2 := toFloat(l.Expected)
		return ok1 && ok2 && actual > expected

	case LockLessThan:
		actual, ok1 := toFloat(value)
		expected, ok2 := toFloat(l.Expected)
		return ok1 && ok2 && actual < expected

	case LockContains:
		return containsValue(value, l.Expected)

	case LockRegex:
		s, ok := value.(string)
		if !ok {
			return false
		}
		pattern, ok := l.Expected.(string)
		if !ok {
			return false
		}
		re, err := regexp.Compile("^(?:" + pattern + ")")
		if err != nil {
			return false
		}
		return re.MatchString(s)

	case LockTypeCheck:
		name, ok := l.Expected.(string)
		if !ok {
			return false
		}
		return matchesTypeName(value, name)

	case LockRange:
		actual, ok := toFloat(value)
		if !ok {
			return false
		}
		min, max, ok := rangeBounds(l.Expected)
		if !ok {
			return false
		}
		return actual >= min && actual <= max

	case LockLength:
		length, ok := lengthOf(value)
		if !ok {
			return false
		}
		return matchesLength(length, l.Expected)

	case LockNotEmpty:
		if s, ok := value.(string); ok {
			return len(strings.TrimSpace(s)) > 0
		}
		if length, ok := lengthOf(value); ok {
			return length > 0
		}
		return true

	case LockInList:
		return inList(value, l.Expected)

	case LockNotInList:
		list, ok := l.Expected.([]any)
		if !ok {
			return false
		}
		for _, item := range list {
			if valueEquals(value, item) {
				return false
			}
		}
		return true

	case LockCustom:
		return l.runValidator(value, validators)
	}

	return false
}

// runValidator dispatches to the named custom validator. A missing registry,
// an unregistered name, or a panicking validator all count as failure.
func (l *Lock) runValidator(value any, validators *Registry) (passed bool) {
	if validators == nil || l.ValidatorName == "" {
		return false
	}
	fn, ok := validators.Lookup(l.ValidatorName)
	if !ok {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			passed = false
		}
	}()
	return fn(value, l.Expected)
}

// isEmptyValue implements the exists-lock notion of emptiness: nil, the
// empty string, or an empty list.
func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// isFalse reports whether expected is explicitly the boolean false.
func isFalse(expected any) bool {
	b, ok := expected.(bool)
	return ok && !b
}

func copyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
