package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/stagegate/stagegate/pkg/errors"
	"github.com/stagegate/stagegate/pkg/gate"
	"github.com/stagegate/stagegate/pkg/process"
	"github.com/stagegate/stagegate/pkg/schema"
	"github.com/stagegate/stagegate/pkg/stage"
	"github.com/stagegate/stagegate/pkg/status"
)

// Parse decodes a YAML process definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &errors.ConfigError{Reason: "invalid YAML", Cause: err}
	}
	return &def, nil
}

// Load reads and decodes a YAML process definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigError{Key: path, Reason: "cannot read definition", Cause: err}
	}
	return Parse(data)
}

// Discover returns the definition files under root matching a doublestar
// pattern such as "**/*.yaml".
func Discover(root, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil, &errors.ConfigError{Key: pattern, Reason: "invalid glob pattern", Cause: err}
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(root, m)
	}
	return paths, nil
}

// BuildOption customizes Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	processOpts []process.Option
}

// WithProcessOptions forwards extra options (logger, validators) to the
// built process.
func WithProcessOptions(opts ...process.Option) BuildOption {
	return func(c *buildConfig) { c.processOpts = append(c.processOpts, opts...) }
}

// Build turns a definition into an evaluable Process. Every structural
// problem in the definition surfaces here, so a built process is always
// evaluable.
func Build(def *Definition, opts ...BuildOption) (*process.Process, error) {
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	registry := gate.NewRegistry()
	for name, vdef := range def.Validators {
		switch {
		case vdef.Expr != "" && vdef.Query != "":
			return nil, &errors.ConfigError{
				Key:    "validators." + name,
				Reason: "validator declares both expr and query",
			}
		case vdef.Expr != "":
			if err := registry.RegisterExpr(name, vdef.Expr); err != nil {
				return nil, &errors.ConfigError{Key: "validators." + name, Reason: "invalid expression", Cause: err}
			}
		case vdef.Query != "":
			if err := registry.RegisterQuery(name, vdef.Query); err != nil {
				return nil, &errors.ConfigError{Key: "validators." + name, Reason: "invalid query", Cause: err}
			}
		default:
			return nil, &errors.ConfigError{
				Key:    "validators." + name,
				Reason: "validator needs either expr or query",
			}
		}
	}

	stages := make([]*stage.Stage, 0, len(def.Stages))
	for _, sdef := range def.Stages {
		st, err := buildStage(sdef)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}

	processOpts := []process.Option{process.WithValidators(registry)}
	if def.StageOrder != nil {
		processOpts = append(processOpts, process.WithStageOrder(def.StageOrder))
	}
	if def.AllowStageSkipping {
		processOpts = append(processOpts, process.WithStageSkipping())
	}
	if def.RegressionDetection {
		processOpts = append(processOpts, process.WithRegressionDetection())
	}
	processOpts = append(processOpts, cfg.processOpts...)

	return process.New(def.Name, stages, processOpts...)
}

func buildStage(def StageDef) (*stage.Stage, error) {
	var opts []stage.Option

	if def.Schema != nil {
		sc, err := buildSchema(def.Name, *def.Schema)
		if err != nil {
			return nil, err
		}
		opts = append(opts, stage.WithSchema(sc))
	}
	if def.AllowPartial {
		opts = append(opts, stage.WithAllowPartial())
	}
	if len(def.Metadata) > 0 {
		opts = append(opts, stage.WithMetadata(def.Metadata))
	}

	if len(def.Actions) > 0 {
		templates, err := buildTemplates(def.Name, def.Actions)
		if err != nil {
			return nil, err
		}
		opts = append(opts, stage.WithTemplates(templates))
	}

	gates := make([]*gate.Gate, 0, len(def.Gates))
	for _, gdef := range def.Gates {
		g, err := buildGate(def.Name, gdef)
		if err != nil {
			return nil, err
		}
		gates = append(gates, g)
	}

	return stage.New(def.Name, gates, opts...)
}

func buildSchema(stageName string, def SchemaDef) (*schema.Schema, error) {
	name := def.Name
	if name == "" {
		name = stageName + "_schema"
	}

	rules := make(map[string]schema.FieldRules, len(def.ValidationRules))
	for field, r := range def.ValidationRules {
		rules[field] = schema.FieldRules{
			Min:       r.Min,
			Max:       r.Max,
			MinLength: r.MinLength,
			MaxLength: r.MaxLength,
			Pattern:   r.Pattern,
			Enum:      r.Enum,
		}
	}

	return schema.New(schema.Config{
		Name:       name,
		Required:   def.RequiredFields,
		Optional:   def.OptionalFields,
		FieldTypes: def.FieldTypes,
		Defaults:   def.DefaultValues,
		Rules:      rules,
		Metadata:   def.Metadata,
	})
}

func buildGate(stageName string, def GateDef) (*gate.Gate, error) {
	components := make([]gate.Component, 0, len(def.Components))
	for i, cdef := range def.Components {
		switch {
		case cdef.Lock != nil:
			lock, err := buildLock(*cdef.Lock)
			if err != nil {
				return nil, &errors.ConfigError{
					Key:    fmt.Sprintf("stages.%s.gates.%s.components[%d]", stageName, def.Name, i),
					Reason: "invalid lock",
					Cause:  err,
				}
			}
			components = append(components, lock)
		case cdef.Gate != nil:
			nested, err := buildGate(stageName, *cdef.Gate)
			if err != nil {
				return nil, err
			}
			components = append(components, nested)
		default:
			return nil, &errors.ConfigError{
				Key:    fmt.Sprintf("stages.%s.gates.%s.components[%d]", stageName, def.Name, i),
				Reason: "component is neither a lock nor a gate",
			}
		}
	}

	var opts []gate.Option
	if def.Operation != "" {
		opts = append(opts, gate.WithOperation(def.Operation))
	}
	if def.TargetStage != "" {
		opts = append(opts, gate.WithTargetStage(def.TargetStage))
	}
	if len(def.Metadata) > 0 {
		opts = append(opts, gate.WithMetadata(def.Metadata))
	}
	return gate.NewGate(def.Name, components, opts...)
}

func buildLock(def LockDef) (*gate.Lock, error) {
	typ := gate.LockType(def.Type)
	var lock *gate.Lock
	var err error
	if typ == gate.LockCustom {
		lock, err = gate.NewCustomLock(def.PropertyPath, def.ValidatorName, def.ExpectedValue)
	} else {
		lock, err = gate.NewLock(def.PropertyPath, typ, def.ExpectedValue)
	}
	if err != nil {
		return nil, err
	}
	lock.Metadata = def.Metadata
	return lock, nil
}

func buildTemplates(stageName string, actions map[string][]ActionDef) (map[status.State][]stage.ActionTemplate, error) {
	templates := make(map[status.State][]stage.ActionTemplate, len(actions))
	for stateName, defs := range actions {
		state := status.State(stateName)
		if !knownState(state) {
			return nil, &errors.ConfigError{
				Key:    fmt.Sprintf("stages.%s.actions.%s", stageName, stateName),
				Reason: "unknown evaluation state",
			}
		}
		for _, adef := range defs {
			t, err := buildTemplate(stageName, stateName, adef)
			if err != nil {
				return nil, err
			}
			templates[state] = append(templates[state], t)
		}
	}
	return templates, nil
}

func buildTemplate(stageName, stateName string, def ActionDef) (stage.ActionTemplate, error) {
	key := fmt.Sprintf("stages.%s.actions.%s", stageName, stateName)

	actionType := status.ActionType(def.Type)
	switch actionType {
	case status.ActionCompleteField, status.ActionValidateData, status.ActionWaitForCondition,
		status.ActionTransitionStage, status.ActionManualReview:
	default:
		return stage.ActionTemplate{}, &errors.ConfigError{
			Key:    key,
			Reason: fmt.Sprintf("unknown action type %q", def.Type),
		}
	}

	priority := status.Priority(def.Priority)
	switch priority {
	case "":
		priority = status.PriorityNormal
	case status.PriorityLow, status.PriorityNormal, status.PriorityHigh, status.PriorityCritical:
	default:
		return stage.ActionTemplate{}, &errors.ConfigError{
			Key:    key,
			Reason: fmt.Sprintf("unknown priority %q", def.Priority),
		}
	}

	return stage.ActionTemplate{
		Type:         actionType,
		Description:  def.Description,
		Priority:     priority,
		Conditions:   def.Conditions,
		TemplateVars: def.TemplateVars,
		Metadata:     def.Metadata,
	}, nil
}

func knownState(s status.State) bool {
	for _, known := range status.States() {
		if s == known {
			return true
		}
	}
	return false
}
