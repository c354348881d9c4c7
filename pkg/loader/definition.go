// Package loader turns YAML process definitions into the canonical
// Lock/Gate/Schema/Stage/Process graph. The evaluation core never parses
// file syntax itself; this package is its only producer.
package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/stagegate/stagegate/pkg/gate"
)

// Definition is the root of a YAML process definition.
type Definition struct {
	// Name of the process.
	Name string `yaml:"name"`

	// Description is informational only.
	Description string `yaml:"description,omitempty"`

	// Stages in declaration order.
	Stages []StageDef `yaml:"stages"`

	// StageOrder optionally overrides declaration order.
	StageOrder []string `yaml:"stage_order,omitempty"`

	// AllowStageSkipping permits progression to jump stages.
	AllowStageSkipping bool `yaml:"allow_stage_skipping,omitempty"`

	// RegressionDetection turns on regression checks on re-evaluation.
	RegressionDetection bool `yaml:"regression_detection,omitempty"`

	// Validators declares named custom validators available to custom
	// locks: each entry is either an expression or a jq query.
	Validators map[string]ValidatorDef `yaml:"validators,omitempty"`

	// Metadata is free-form.
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

// ValidatorDef declares one custom validator. Exactly one of Expr or Query
// must be set.
type ValidatorDef struct {
	// Expr is a boolean expression over `value` and `expected`.
	Expr string `yaml:"expr,omitempty"`

	// Query is a jq query run against the property value; a truthy first
	// result passes.
	Query string `yaml:"query,omitempty"`
}

// StageDef declares one stage.
type StageDef struct {
	Name         string                 `yaml:"name"`
	Description  string                 `yaml:"description,omitempty"`
	Schema       *SchemaDef             `yaml:"schema,omitempty"`
	Gates        []GateDef              `yaml:"gates,omitempty"`
	AllowPartial bool                   `yaml:"allow_partial,omitempty"`
	Actions      map[string][]ActionDef `yaml:"actions,omitempty"`
	Metadata     map[string]any         `yaml:"metadata,omitempty"`
}

// SchemaDef declares a stage's structural contract.
type SchemaDef struct {
	Name            string             `yaml:"name,omitempty"`
	RequiredFields  []string           `yaml:"required_fields,omitempty"`
	OptionalFields  []string           `yaml:"optional_fields,omitempty"`
	FieldTypes      map[string]string  `yaml:"field_types,omitempty"`
	DefaultValues   map[string]any     `yaml:"default_values,omitempty"`
	ValidationRules map[string]RuleDef `yaml:"validation_rules,omitempty"`
	Metadata        map[string]any     `yaml:"metadata,omitempty"`
}

// RuleDef declares per-field constraints.
type RuleDef struct {
	Min       *float64 `yaml:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty"`
	MinLength *int     `yaml:"min_length,omitempty"`
	MaxLength *int     `yaml:"max_length,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty"`
	Enum      []any    `yaml:"enum,omitempty"`
}

// GateDef declares one gate.
type GateDef struct {
	Name        string         `yaml:"name"`
	Operation   string         `yaml:"operation,omitempty"`
	TargetStage string         `yaml:"target_stage,omitempty"`
	Components  []ComponentDef `yaml:"components"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
}

// ActionDef declares one action template.
type ActionDef struct {
	Type         string            `yaml:"type"`
	Description  string            `yaml:"description"`
	Priority     string            `yaml:"priority,omitempty"`
	Conditions   []string          `yaml:"conditions,omitempty"`
	TemplateVars map[string]string `yaml:"template_vars,omitempty"`
	Metadata     map[string]any    `yaml:"metadata,omitempty"`
}

// LockDef declares one lock in structured form.
type LockDef struct {
	Type          string         `yaml:"type"`
	PropertyPath  string         `yaml:"property_path"`
	ExpectedValue any            `yaml:"expected_value,omitempty"`
	ValidatorName string         `yaml:"validator_name,omitempty"`
	Metadata      map[string]any `yaml:"metadata,omitempty"`
}

// ComponentDef is one member of a gate: a lock (structured or shorthand)
// or a nested gate. Exactly one of Lock and Gate is set after decoding.
type ComponentDef struct {
	Lock *LockDef
	Gate *GateDef
}

// UnmarshalYAML accepts the component forms a definition may use:
//
//	- exists: user.email               # shorthand: exists with expected true
//	- is_true: verified                # shorthand: equals true
//	- is_false: blocked                # shorthand: equals false
//	- not_empty: name                  # shorthand: not_empty
//	- regex: {property_path: email, value: ".+@.+"}   # typed short form
//	- type: range                      # structured lock
//	  property_path: age
//	  expected_value: [18, 65]
//	- gate: {name: inner, components: [...]}          # nested gate
func (c *ComponentDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: gate component must be a mapping", node.Line)
	}

	if len(node.Content) == 2 {
		key := node.Content[0].Value
		value := node.Content[1]

		if value.Kind == yaml.ScalarNode {
			switch key {
			case "exists":
				c.Lock = &LockDef{Type: string(gate.LockExists), PropertyPath: value.Value, ExpectedValue: true}
				return nil
			case "is_true":
				c.Lock = &LockDef{Type: string(gate.LockEquals), PropertyPath: value.Value, ExpectedValue: true}
				return nil
			case "is_false":
				c.Lock = &LockDef{Type: string(gate.LockEquals), PropertyPath: value.Value, ExpectedValue: false}
				return nil
			case "not_empty":
				c.Lock = &LockDef{Type: string(gate.LockNotEmpty), PropertyPath: value.Value}
				return nil
			}
		}

		if key == "gate" {
			var nested GateDef
			if err := value.Decode(&nested); err != nil {
				return fmt.Errorf("line %d: nested gate: %w", value.Line, err)
			}
			c.Gate = &nested
			return nil
		}

		// Typed short form: {<lock_type>: {property_path, value}}.
		if gate.LockType(key).Valid() && value.Kind == yaml.MappingNode {
			var body struct {
				PropertyPath  string `yaml:"property_path"`
				Value         any    `yaml:"value"`
				ValidatorName string `yaml:"validator_name"`
			}
			if err := value.Decode(&body); err != nil {
				return fmt.Errorf("line %d: %s lock: %w", value.Line, key, err)
			}
			c.Lock = &LockDef{
				Type:          key,
				PropertyPath:  body.PropertyPath,
				ExpectedValue: body.Value,
				ValidatorName: body.ValidatorName,
			}
			return nil
		}
	}

	if hasMappingKey(node, "components") {
		var nested GateDef
		if err := node.Decode(&nested); err != nil {
			return fmt.Errorf("line %d: nested gate: %w", node.Line, err)
		}
		c.Gate = &nested
		return nil
	}

	var lock LockDef
	if err := node.Decode(&lock); err != nil {
		return fmt.Errorf("line %d: lock: %w", node.Line, err)
	}
	c.Lock = &lock
	return nil
}

func hasMappingKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}
