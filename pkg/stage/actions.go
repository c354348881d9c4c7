package stage

import (
	"fmt"
	"regexp"

	"github.com/stagegate/stagegate/pkg/element"
	"github.com/stagegate/stagegate/pkg/status"
)

// placeholderPattern matches {var} placeholders in template strings.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ActionTemplate describes one remediation action a stage emits for a given
// evaluation state. Descriptions and conditions may contain {var}
// placeholders bound to element properties via TemplateVars or supplied by
// the caller's context at resolution time.
type ActionTemplate struct {
	// Type classifies the resolved action.
	Type status.ActionType

	// Description is the {var}-templated action text.
	Description string

	// Priority of the resolved action. Defaults to normal.
	Priority status.Priority

	// Conditions are {var}-templated prerequisites carried on the action.
	Conditions []string

	// TemplateVars binds placeholder names to element property paths.
	// An unresolvable path substitutes the empty string.
	TemplateVars map[string]string

	// Metadata is copied onto the resolved action unchanged.
	Metadata map[string]any
}

// Resolve materializes the template against an element and caller context.
// Context values override property bindings of the same name. Placeholders
// with no binding at all are left verbatim. Resolution never fails.
func (t ActionTemplate) Resolve(el element.Element, ctx map[string]any) status.Action {
	vars := make(map[string]string, len(t.TemplateVars)+len(ctx))
	for name, path := range t.TemplateVars {
		if value, ok := el.GetProperty(path); ok {
			vars[name] = fmt.Sprintf("%v", value)
		} else {
			vars[name] = ""
		}
	}
	for name, value := range ctx {
		vars[name] = fmt.Sprintf("%v", value)
	}

	priority := t.Priority
	if priority == "" {
		priority = status.PriorityNormal
	}

	action := status.Action{
		Type:        t.Type,
		Description: substitute(t.Description, vars),
		Priority:    priority,
		Metadata:    t.Metadata,
	}
	for _, cond := range t.Conditions {
		action.Conditions = append(action.Conditions, substitute(cond, vars))
	}
	return action
}

// substitute replaces bound {var} placeholders and leaves unbound ones
// untouched.
func substitute(s string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}
