package gate

import (
	"fmt"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/itchyny/gojq"
)

// ValidatorFunc is a custom predicate dispatched by custom locks.
// It receives the resolved property value and the lock's expected value.
type ValidatorFunc func(value, expected any) bool

// Registry maps validator names to predicates. One Registry belongs to each
// Process so tests and concurrent processes stay isolated; there is no
// global instance. Registration may happen at any time before evaluation;
// last write wins.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]ValidatorFunc
}

// NewRegistry creates an empty validator registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]ValidatorFunc)}
}

// Register stores a validator under the given name, replacing any previous
// entry with that name.
func (r *Registry) Register(name string, fn ValidatorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[name] = fn
}

// Lookup returns the validator registered under name.
func (r *Registry) Lookup(name string) (ValidatorFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.validators[name]
	return fn, ok
}

// Names returns the registered validator names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.validators))
	for name := range r.validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes every registered validator.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators = make(map[string]ValidatorFunc)
}

// RegisterExpr compiles a boolean expression and registers it as a
// validator. The expression sees the resolved property as `value` and the
// lock's expected value as `expected`:
//
//	reg.RegisterExpr("adult", "value >= 18")
//	reg.RegisterExpr("in_budget", "value <= expected * 1.1")
//
// Compilation errors surface here so definitions fail fast; runtime
// evaluation errors fail the lock.
func (r *Registry) RegisterExpr(name, source string) error {
	program, err := expr.Compile(source,
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return fmt.Errorf("compile validator %q: %w", name, err)
	}
	r.Register(name, exprValidator(program))
	return nil
}

func exprValidator(program *vm.Program) ValidatorFunc {
	return func(value, expected any) bool {
		out, err := vm.Run(program, map[string]any{
			"value":    value,
			"expected": expected,
		})
		if err != nil {
			return false
		}
		b, ok := out.(bool)
		return ok && b
	}
}

// RegisterQuery compiles a jq query and registers it as a validator. The
// query runs against the resolved property value; a truthy first result
// (anything except null and false) passes:
//
//	reg.RegisterQuery("has_admin", `.roles | index("admin") != null`)
//
// Parse and compile errors surface here; runtime errors fail the lock.
func (r *Registry) RegisterQuery(name, source string) error {
	query, err := gojq.Parse(source)
	if err != nil {
		return fmt.Errorf("parse validator %q: %w", name, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("compile validator %q: %w", name, err)
	}
	r.Register(name, func(value, _ any) bool {
		iter := code.Run(value)
		v, ok := iter.Next()
		if !ok {
			return false
		}
		if _, isErr := v.(error); isErr {
			return false
		}
		return v != nil && v != false
	})
	return nil
}
