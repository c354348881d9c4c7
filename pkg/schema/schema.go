// Package schema implements the structural contract a stage may impose on
// elements: required and optional fields, declared types, defaults, and
// per-field rules. Validation accumulates every violation rather than
// stopping at the first.
package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/stagegate/stagegate/pkg/element"
	"github.com/stagegate/stagegate/pkg/errors"
)

// Field type names accepted by FieldTypes declarations.
var validFieldTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"integer": true,
	"boolean": true,
	"array":   true,
	"object":  true,
	"null":    true,
}

// FieldRules holds the optional per-field constraints. Nil bounds are
// unconstrained.
type FieldRules struct {
	// Min and Max bound the value numerically (inclusive).
	Min *float64
	Max *float64

	// MinLength and MaxLength bound string length.
	MinLength *int
	MaxLength *int

	// Pattern must match at the start of string values.
	Pattern string

	// Enum restricts the value to the listed members.
	Enum []any
}

// Schema is a structural contract over elements.
// Schemas are immutable once built; callers must not mutate the fields.
type Schema struct {
	// Name identifies the schema.
	Name string

	// Required lists fields that must resolve on every element.
	Required []string

	// Optional lists known fields that may be absent. Disjoint from Required.
	Optional []string

	// FieldTypes declares the expected type name for present fields.
	FieldTypes map[string]string

	// Defaults provides values for absent optional fields. Keys must be a
	// subset of Optional.
	Defaults map[string]any

	// Rules holds per-field constraints applied to present fields.
	Rules map[string]FieldRules

	// Metadata is free-form and carried through unchanged.
	Metadata map[string]any
}

// Config collects the inputs to New so call sites stay readable.
type Config struct {
	Name       string
	Required   []string
	Optional   []string
	FieldTypes map[string]string
	Defaults   map[string]any
	Rules      map[string]FieldRules
	Metadata   map[string]any
}

// New builds a Schema and checks its configuration: required and optional
// fields must be disjoint, defaults must target optional fields, and
// declared types must come from the known set.
func New(cfg Config) (*Schema, error) {
	if cfg.Name == "" {
		return nil, &errors.ValidationError{
			Field:   "name",
			Message: "schema name cannot be empty",
		}
	}

	optional := make(map[string]bool, len(cfg.Optional))
	for _, f := range cfg.Optional {
		optional[f] = true
	}
	for _, f := range cfg.Required {
		if optional[f] {
			return nil, &errors.ValidationError{
				Field:   "required_fields",
				Message: fmt.Sprintf("field %q cannot be both required and optional", f),
			}
		}
	}
	for f := range cfg.Defaults {
		if !optional[f] {
			return nil, &errors.ValidationError{
				Field:      "default_values",
				Message:    fmt.Sprintf("default value provided for non-optional field %q", f),
				Suggestion: "Defaults only apply to optional fields",
			}
		}
	}
	for f, t := range cfg.FieldTypes {
		if !validFieldTypes[t] {
			return nil, &errors.ValidationError{
				Field:   "field_types",
				Message: fmt.Sprintf("invalid type %q for field %q", t, f),
			}
		}
	}

	return &Schema{
		Name:       cfg.Name,
		Required:   cfg.Required,
		Optional:   cfg.Optional,
		FieldTypes: cfg.FieldTypes,
		Defaults:   cfg.Defaults,
		Rules:      cfg.Rules,
		Metadata:   cfg.Metadata,
	}, nil
}

// Validate checks an element against the schema and returns every violation.
// An empty slice means the element conforms. Absent optional fields never
// produce errors.
func (s *Schema) Validate(el element.Element) []string {
	var errs []string

	for _, field := range s.Required {
		if !el.HasProperty(field) {
			errs = append(errs, fmt.Sprintf("Required field missing: %s", field))
		}
	}

	for _, field := range sortedKeys(s.FieldTypes) {
		value, ok := el.GetProperty(field)
		if !ok {
			continue
		}
		if !matchesType(value, s.FieldTypes[field]) {
			errs = append(errs, fmt.Sprintf("Field '%s' has invalid type: expected %s", field, s.FieldTypes[field]))
		}
	}

	for _, field := range sortedRuleKeys(s.Rules) {
		value, ok := el.GetProperty(field)
		if !ok {
			continue
		}
		errs = append(errs, checkRules(field, value, s.Rules[field])...)
	}

	return errs
}

// AllFields returns every field the schema references, required first.
func (s *Schema) AllFields() []string {
	out := make([]string, 0, len(s.Required)+len(s.Optional))
	out = append(out, s.Required...)
	out = append(out, s.Optional...)
	return out
}

// DefaultValue returns the default for an optional field, if declared.
func (s *Schema) DefaultValue(field string) (any, bool) {
	v, ok := s.Defaults[field]
	return v, ok
}

// checkRules applies the per-field constraints to a present value.
func checkRules(field string, value any, rules FieldRules) []string {
	var errs []string

	if rules.Min != nil {
		if n, ok := toFloat(value); !ok {
			errs = append(errs, fmt.Sprintf("Field '%s' cannot be compared to minimum value", field))
		} else if n < *rules.Min {
			errs = append(errs, fmt.Sprintf("Field '%s' below minimum value %v", field, trimFloat(*rules.Min)))
		}
	}

	if rules.Max != nil {
		if n, ok := toFloat(value); !ok {
			errs = append(errs, fmt.Sprintf("Field '%s' cannot be compared to maximum value", field))
		} else if n > *rules.Max {
			errs = append(errs, fmt.Sprintf("Field '%s' above maximum value %v", field, trimFloat(*rules.Max)))
		}
	}

	if s, isString := value.(string); isString {
		if rules.MinLength != nil && len(s) < *rules.MinLength {
			errs = append(errs, fmt.Sprintf("Field '%s' below minimum length %d", field, *rules.MinLength))
		}
		if rules.MaxLength != nil && len(s) > *rules.MaxLength {
			errs = append(errs, fmt.Sprintf("Field '%s' above maximum length %d", field, *rules.MaxLength))
		}
		if rules.Pattern != "" {
			re, err := regexp.Compile("^(?:" + rules.Pattern + ")")
			if err != nil {
				errs = append(errs, fmt.Sprintf("Invalid pattern for field '%s'", field))
			} else if !re.MatchString(s) {
				errs = append(errs, fmt.Sprintf("Field '%s' does not match required pattern", field))
			}
		}
	}

	if len(rules.Enum) > 0 && !enumContains(rules.Enum, value) {
		errs = append(errs, fmt.Sprintf("Field '%s' must be one of: %v", field, rules.Enum))
	}

	return errs
}

// matchesType checks a present value against a declared type name.
// A nil value only satisfies "null".
func matchesType(value any, expected string) bool {
	if value == nil {
		return expected == "null"
	}
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		return isNumeric(value)
	case "integer":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "null":
		return false
	default:
		return false
	}
}

func isNumeric(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// toFloat coerces numbers and numeric strings for min/max comparisons.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// trimFloat renders whole bounds without decimal noise in messages.
func trimFloat(f float64) any {
	if f == float64(int64(f)) {
		return int64(f)
	}
	return f
}

func enumContains(enum []any, value any) bool {
	for _, member := range enum {
		if member == value {
			return true
		}
		if isNumeric(member) && isNumeric(value) {
			a, _ := toFloat(member)
			b, _ := toFloat(value)
			if a == b {
				return true
			}
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedRuleKeys(m map[string]FieldRules) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
