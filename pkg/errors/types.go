// Package errors defines the shared error taxonomy for stagegate.
//
// Construction-time problems (bad lock configuration, duplicate stage names,
// schema disjointness violations) surface as ValidationError or ConfigError.
// Lookup misses surface as NotFoundError. Evaluation itself never returns
// errors: resolution misses and validator faults fold into boolean results.
package errors

import "fmt"

// ValidationError represents a constraint violation detected while building
// locks, gates, schemas, stages, or processes.
type ValidationError struct {
	// Field identifies which field or component failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NotFoundError represents a resource not found error.
// Use this when a requested stage, gate, or validator does not exist.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "stage", "validator")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConfigError represents process definition problems.
// Use this for definition file errors, missing settings, or invalid values.
type ConfigError struct {
	// Key is the definition key that has the problem (e.g., "stage_order", "gates.readiness")
	Key string

	// Reason explains what's wrong with the definition
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
