// Package stage combines a structural schema with ordered gates into a
// workflow checkpoint. A stage decides pass/fail for an element, measures
// how complete the element is, and resolves per-state remediation actions.
package stage

import (
	"fmt"

	"github.com/stagegate/stagegate/pkg/element"
	"github.com/stagegate/stagegate/pkg/errors"
	"github.com/stagegate/stagegate/pkg/gate"
	"github.com/stagegate/stagegate/pkg/schema"
	"github.com/stagegate/stagegate/pkg/status"
)

// Stage is one workflow checkpoint. Stages are built once from a process
// definition and reused across every evaluation; callers must not mutate
// the fields.
type Stage struct {
	// Name identifies the stage; unique within a process.
	Name string

	// Gates are evaluated on every call, in order. Names are unique.
	Gates []*gate.Gate

	// Schema optionally imposes a structural contract.
	Schema *schema.Schema

	// AllowPartial makes a single passing gate sufficient.
	AllowPartial bool

	// Templates holds per-state action templates.
	Templates map[status.State][]ActionTemplate

	// Metadata is free-form and carried through unchanged.
	Metadata map[string]any
}

// Option configures optional Stage fields at construction.
type Option func(*Stage)

// WithSchema attaches a structural contract to the stage.
func WithSchema(s *schema.Schema) Option {
	return func(st *Stage) { st.Schema = s }
}

// WithAllowPartial makes one passing gate sufficient for the stage to pass.
func WithAllowPartial() Option {
	return func(st *Stage) { st.AllowPartial = true }
}

// WithTemplates sets the per-state action templates.
func WithTemplates(templates map[status.State][]ActionTemplate) Option {
	return func(st *Stage) { st.Templates = templates }
}

// WithMetadata attaches free-form metadata to the stage.
func WithMetadata(md map[string]any) Option {
	return func(st *Stage) { st.Metadata = md }
}

// New builds a Stage over the given gates. Gate names must be unique; a
// stage may have no gates at all (schema-only checkpoints are valid).
func New(name string, gates []*gate.Gate, opts ...Option) (*Stage, error) {
	if name == "" {
		return nil, &errors.ValidationError{
			Field:   "name",
			Message: "stage name cannot be empty",
		}
	}
	seen := map[string]bool{}
	for _, g := range gates {
		if seen[g.Name] {
			return nil, &errors.ValidationError{
				Field:   "gates",
				Message: fmt.Sprintf("duplicate gate name %q in stage %q", g.Name, name),
			}
		}
		seen[g.Name] = true
	}

	st := &Stage{Name: name, Gates: gates}
	for _, opt := range opts {
		opt(st)
	}
	return st, nil
}

// Result reports the outcome of evaluating one Stage.
type Result struct {
	StageName     string         `json:"stage_name"`
	SchemaValid   bool           `json:"schema_valid"`
	SchemaErrors  []string       `json:"schema_errors,omitempty"`
	GateResults   []gate.Result  `json:"gate_results,omitempty"`
	OverallPassed bool           `json:"overall_passed"`
	Actions       []string       `json:"actions,omitempty"`
	Completion    float64        `json:"completion"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// PassedGates returns the names of gates that passed.
func (r *Result) PassedGates() []string {
	var names []string
	for _, gr := range r.GateResults {
		if gr.Passed {
			names = append(names, gr.GateName)
		}
	}
	return names
}

// FailedGates returns the names of gates that failed.
func (r *Result) FailedGates() []string {
	var names []string
	for _, gr := range r.GateResults {
		if !gr.Passed {
			names = append(names, gr.GateName)
		}
	}
	return names
}

// FailureMessages concatenates the failure messages of every failed gate,
// in gate order.
func (r *Result) FailureMessages() []string {
	var msgs []string
	for _, gr := range r.GateResults {
		if !gr.Passed {
			msgs = append(msgs, gr.Messages...)
		}
	}
	return msgs
}

// Evaluate checks the element against the stage. The schema runs first, but
// every gate is evaluated regardless of the schema outcome; gates never
// short-circuit each other.
//
// OverallPassed requires a valid schema and, when gates exist, all of them
// passing — or any one of them under AllowPartial. Completion averages the
// fraction of passing gates with the schema outcome; a stage with neither
// gates nor schema is always complete.
func (s *Stage) Evaluate(el element.Element, validators *gate.Registry) Result {
	res := Result{StageName: s.Name, SchemaValid: true, Metadata: s.Metadata}

	if s.Schema != nil {
		res.SchemaErrors = s.Schema.Validate(el)
		res.SchemaValid = len(res.SchemaErrors) == 0
	}

	passed := 0
	for _, g := range s.Gates {
		gr := g.Evaluate(el, validators)
		res.GateResults = append(res.GateResults, gr)
		if gr.Passed {
			passed++
		} else {
			res.Actions = append(res.Actions, gr.Actions...)
		}
	}

	gatesPassed := true
	if len(s.Gates) > 0 {
		if s.AllowPartial {
			gatesPassed = passed > 0
		} else {
			gatesPassed = passed == len(s.Gates)
		}
	}
	res.OverallPassed = res.SchemaValid && gatesPassed

	schemaScore := 0.0
	if res.SchemaValid {
		schemaScore = 1.0
	}
	if len(s.Gates) == 0 {
		res.Completion = schemaScore
	} else {
		res.Completion = (float64(passed)/float64(len(s.Gates)) + schemaScore) / 2
	}
	return res
}

// IsCompatibleWithElement reports whether the element carries every field
// the stage's schema requires. A stage without a schema accepts anything.
func (s *Stage) IsCompatibleWithElement(el element.Element) bool {
	if s.Schema == nil {
		return true
	}
	for _, field := range s.Schema.Required {
		if !el.HasProperty(field) {
			return false
		}
	}
	return true
}

// CompletionFraction evaluates the stage and reports how complete the
// element is, in [0, 1].
func (s *Stage) CompletionFraction(el element.Element, validators *gate.Registry) float64 {
	res := s.Evaluate(el, validators)
	return res.Completion
}

// ResolveActionsForState materializes the stage's templates for the given
// state against an element and caller context. Returns nil when the stage
// carries no templates for that state.
func (s *Stage) ResolveActionsForState(state status.State, el element.Element, ctx map[string]any) []status.Action {
	templates := s.Templates[state]
	if len(templates) == 0 {
		return nil
	}
	actions := make([]status.Action, 0, len(templates))
	for _, t := range templates {
		actions = append(actions, t.Resolve(el, ctx))
	}
	return actions
}

// PropertyPaths returns every property path the stage's gates and schema
// reference, deduplicated in first-seen order.
func (s *Stage) PropertyPaths() []string {
	seen := map[string]bool{}
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	if s.Schema != nil {
		for _, f := range s.Schema.AllFields() {
			add(f)
		}
	}
	for _, g := range s.Gates {
		for _, p := range g.PropertyPaths() {
			add(p)
		}
	}
	return paths
}
