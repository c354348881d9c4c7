// Package analysis inspects a built process for configuration smells:
// stages that check nothing, gates whose locks contradict each other,
// gate trees past the advisable size, and references that dangle.
// Findings are advisory and never affect evaluation.
package analysis

import (
	"fmt"
	"sort"

	"github.com/stagegate/stagegate/pkg/gate"
	"github.com/stagegate/stagegate/pkg/process"
	"github.com/stagegate/stagegate/pkg/stage"
)

// IssueType classifies a lint finding.
type IssueType string

const (
	IssueEmptyStage       IssueType = "empty_stage"
	IssueLogicalConflict  IssueType = "logical_conflict"
	IssueStructureWarning IssueType = "structure_warning"
	IssueDanglingTarget   IssueType = "dangling_target"
	IssueUnknownValidator IssueType = "unknown_validator"
)

// Issue is one advisory finding.
type Issue struct {
	Type        IssueType `json:"type"`
	Description string    `json:"description"`
	Stages      []string  `json:"stages,omitempty"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s", i.Type, i.Description)
}

// Lint runs every check against the process and returns the findings in
// stage order.
func Lint(p *process.Process) []Issue {
	var issues []Issue

	known := map[string]bool{}
	for _, name := range p.StageOrder() {
		known[name] = true
	}
	registered := map[string]bool{}
	for _, name := range p.Validators().Names() {
		registered[name] = true
	}

	for _, st := range p.Stages() {
		issues = append(issues, lintStage(st, known, registered)...)
	}
	return issues
}

func lintStage(st *stage.Stage, knownStages, registered map[string]bool) []Issue {
	var issues []Issue

	if st.Schema == nil && len(st.Gates) == 0 {
		issues = append(issues, Issue{
			Type:        IssueEmptyStage,
			Description: fmt.Sprintf("Stage '%s' has neither a schema nor gates and passes every element", st.Name),
			Stages:      []string{st.Name},
		})
	}

	for _, g := range st.Gates {
		for _, warning := range g.ValidateStructure() {
			issues = append(issues, Issue{
				Type:        IssueStructureWarning,
				Description: warning,
				Stages:      []string{st.Name},
			})
		}
		if g.TargetStage != "" && !knownStages[g.TargetStage] {
			issues = append(issues, Issue{
				Type:        IssueDanglingTarget,
				Description: fmt.Sprintf("Gate '%s' in stage '%s' targets unknown stage '%s'", g.Name, st.Name, g.TargetStage),
				Stages:      []string{st.Name},
			})
		}
		issues = append(issues, lintGateLogic(st.Name, g, registered)...)
	}
	return issues
}

// lintGateLogic flags contradictory locks on the same property within one
// gate and custom locks whose validators are unregistered. Nested gates are
// checked recursively, each against its own lock set: short-circuiting makes
// conflicts meaningful only among siblings.
func lintGateLogic(stageName string, g *gate.Gate, registered map[string]bool) []Issue {
	var issues []Issue

	byPath := map[string][]*gate.Lock{}
	for _, comp := range g.Components {
		switch c := comp.(type) {
		case *gate.Lock:
			byPath[c.PropertyPath] = append(byPath[c.PropertyPath], c)
			if c.Type == gate.LockCustom && !registered[c.ValidatorName] {
				issues = append(issues, Issue{
					Type:        IssueUnknownValidator,
					Description: fmt.Sprintf("Gate '%s' in stage '%s' uses unregistered validator '%s'", g.Name, stageName, c.ValidatorName),
					Stages:      []string{stageName},
				})
			}
		case *gate.Gate:
			issues = append(issues, lintGateLogic(stageName, c, registered)...)
		}
	}

	paths := make([]string, 0, len(byPath))
	for path := range byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		for _, conflict := range propertyConflicts(byPath[path]) {
			issues = append(issues, Issue{
				Type: IssueLogicalConflict,
				Description: fmt.Sprintf("Gate '%s' in stage '%s' has conflicting conditions for property '%s': %s",
					g.Name, stageName, path, conflict),
				Stages: []string{stageName},
			})
		}
	}
	return issues
}

// propertyConflicts reports contradictions among locks that share a property.
func propertyConflicts(locks []*gate.Lock) []string {
	var conflicts []string

	var equals, greater, less []*gate.Lock
	for _, l := range locks {
		switch l.Type {
		case gate.LockEquals:
			equals = append(equals, l)
		case gate.LockGreaterThan:
			greater = append(greater, l)
		case gate.LockLessThan:
			less = append(less, l)
		}
	}

	if len(equals) > 1 {
		seen := map[string]bool{}
		var distinct []string
		for _, l := range equals {
			key := fmt.Sprintf("%v", l.Expected)
			if !seen[key] {
				seen[key] = true
				distinct = append(distinct, key)
			}
		}
		if len(distinct) > 1 {
			conflicts = append(conflicts, fmt.Sprintf("multiple EQUALS conditions (%s)", joinStrings(distinct)))
		}
	}

	for _, eq := range equals {
		eqVal, ok := asNumber(eq.Expected)
		if !ok {
			continue
		}
		for _, gt := range greater {
			if bound, ok := asNumber(gt.Expected); ok && eqVal <= bound {
				conflicts = append(conflicts, fmt.Sprintf("EQUALS %v conflicts with GREATER_THAN %v", eq.Expected, gt.Expected))
			}
		}
		for _, lt := range less {
			if bound, ok := asNumber(lt.Expected); ok && eqVal >= bound {
				conflicts = append(conflicts, fmt.Sprintf("EQUALS %v conflicts with LESS_THAN %v", eq.Expected, lt.Expected))
			}
		}
	}

	for _, gt := range greater {
		lo, okLo := asNumber(gt.Expected)
		if !okLo {
			continue
		}
		for _, lt := range less {
			if hi, okHi := asNumber(lt.Expected); okHi && lo >= hi {
				conflicts = append(conflicts, fmt.Sprintf("GREATER_THAN %v conflicts with LESS_THAN %v (empty range)", gt.Expected, lt.Expected))
			}
		}
	}
	return conflicts
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func joinStrings(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
