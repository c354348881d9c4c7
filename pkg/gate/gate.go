package gate

import (
	"fmt"

	"github.com/stagegate/stagegate/pkg/element"
	"github.com/stagegate/stagegate/pkg/errors"
)

// Advisory thresholds for ValidateStructure. Exceeding them produces
// warnings, never failures.
const (
	maxAdvisableDepth      = 5
	maxAdvisableComplexity = 25
)

// Component is a member of a Gate: either a *Lock or a nested *Gate.
// The set of implementations is closed within this package.
type Component interface {
	// PropertyPaths returns every property path the component inspects.
	PropertyPaths() []string

	evaluate(el element.Element, validators *Registry) componentOutcome
}

// componentOutcome is the uniform pass/fail view a Gate takes of its
// components during evaluation.
type componentOutcome struct {
	passed   bool
	messages []string
	actions  []string
}

// Gate is an ordered, short-circuiting AND-composition of locks and nested
// gates. Gates are immutable once built; callers must not mutate the fields.
type Gate struct {
	// Name identifies the gate; unique within a stage.
	Name string

	// Components are evaluated strictly in order.
	Components []Component

	// Operation records a legacy operator tag (or/xor/not) accepted for
	// construction compatibility. It never alters the conjunctive semantics.
	Operation string

	// TargetStage optionally names the stage this gate guards entry to.
	TargetStage string

	// Metadata is free-form and carried through unchanged.
	Metadata map[string]any
}

// Option configures optional Gate fields at construction.
type Option func(*Gate)

// WithOperation records a legacy operator tag in the gate's metadata.
// Evaluation semantics remain conjunctive regardless of the tag.
func WithOperation(op string) Option {
	return func(g *Gate) { g.Operation = op }
}

// WithTargetStage names the stage the gate guards entry to.
func WithTargetStage(stage string) Option {
	return func(g *Gate) { g.TargetStage = stage }
}

// WithMetadata attaches free-form metadata to the gate.
func WithMetadata(md map[string]any) Option {
	return func(g *Gate) { g.Metadata = md }
}

// NewGate builds a Gate over the given components. It enforces a non-empty
// name, at least one component, and the absence of reference cycles through
// nested gates.
func NewGate(name string, components []Component, opts ...Option) (*Gate, error) {
	if name == "" {
		return nil, &errors.ValidationError{
			Field:   "name",
			Message: "gate name cannot be empty",
		}
	}
	if len(components) == 0 {
		return nil, &errors.ValidationError{
			Field:      "components",
			Message:    fmt.Sprintf("gate %q requires at least one component", name),
			Suggestion: "Add a lock or a nested gate",
		}
	}

	g := &Gate{Name: name, Components: components}
	for _, opt := range opts {
		opt(g)
	}
	if g.Operation != "" && g.Operation != "and" {
		if g.Metadata == nil {
			g.Metadata = map[string]any{}
		}
		g.Metadata["operation"] = g.Operation
	}

	if cycleAt := findCycle(g, map[*Gate]bool{}); cycleAt != "" {
		return nil, &errors.ValidationError{
			Field:   "components",
			Message: fmt.Sprintf("gate %q contains itself transitively via %q", name, cycleAt),
		}
	}
	return g, nil
}

// findCycle walks nested gates and reports the name of the first gate seen
// twice on the current path, or "" when the tree is acyclic.
func findCycle(g *Gate, onPath map[*Gate]bool) string {
	if onPath[g] {
		return g.Name
	}
	onPath[g] = true
	defer delete(onPath, g)

	for _, comp := range g.Components {
		if nested, ok := comp.(*Gate); ok {
			if at := findCycle(nested, onPath); at != "" {
				return at
			}
		}
	}
	return ""
}

// Result reports the outcome of evaluating one Gate.
type Result struct {
	GateName         string      `json:"gate_name"`
	Passed           bool        `json:"passed"`
	PassedComponents []Component `json:"-"`
	FailedComponents []Component `json:"-"`
	Messages         []string    `json:"messages,omitempty"`
	Actions          []string    `json:"actions,omitempty"`
	ShortCircuited   bool        `json:"short_circuited"`
}

// Evaluate runs the gate's components strictly in order, stopping at the
// first failure. ShortCircuited is true only when that stop left components
// unevaluated; a failure on the final component evaluates everything.
func (g *Gate) Evaluate(el element.Element, validators *Registry) Result {
	res := Result{GateName: g.Name, Passed: true}

	for i, comp := range g.Components {
		out := comp.evaluate(el, validators)
		if out.passed {
			res.PassedComponents = append(res.PassedComponents, comp)
			continue
		}

		res.Passed = false
		res.FailedComponents = append(res.FailedComponents, comp)
		res.Messages = append(res.Messages, out.messages...)
		res.Actions = append(res.Actions, out.actions...)
		res.ShortCircuited = i < len(g.Components)-1
		break
	}
	return res
}

// evaluate adapts Evaluate to the Component interface so gates nest.
func (g *Gate) evaluate(el element.Element, validators *Registry) componentOutcome {
	res := g.Evaluate(el, validators)
	return componentOutcome{
		passed:   res.Passed,
		messages: res.Messages,
		actions:  res.Actions,
	}
}

// PropertyPaths returns the deduplicated union of every property path the
// gate inspects, in first-seen order.
func (g *Gate) PropertyPaths() []string {
	seen := map[string]bool{}
	var paths []string
	for _, comp := range g.Components {
		for _, p := range comp.PropertyPaths() {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	return paths
}

// Complexity counts the leaf locks under the gate, nested gates included.
func (g *Gate) Complexity() int {
	total := 0
	for _, comp := range g.Components {
		switch c := comp.(type) {
		case *Gate:
			total += c.Complexity()
		default:
			total++
		}
	}
	return total
}

// MaxDepth reports the gate nesting depth. A gate holding only locks has
// depth 1.
func (g *Gate) MaxDepth() int {
	depth := 1
	for _, comp := range g.Components {
		if nested, ok := comp.(*Gate); ok {
			if d := nested.MaxDepth() + 1; d > depth {
				depth = d
			}
		}
	}
	return depth
}

// ValidateStructure returns advisory warnings about gates that are likely
// hard to maintain. Warnings never affect evaluation.
func (g *Gate) ValidateStructure() []string {
	var warnings []string
	if depth := g.MaxDepth(); depth > maxAdvisableDepth {
		warnings = append(warnings,
			fmt.Sprintf("gate %q nests %d levels deep (advisable maximum %d)", g.Name, depth, maxAdvisableDepth))
	}
	if complexity := g.Complexity(); complexity > maxAdvisableComplexity {
		warnings = append(warnings,
			fmt.Sprintf("gate %q contains %d locks (advisable maximum %d)", g.Name, complexity, maxAdvisableComplexity))
	}
	return warnings
}
