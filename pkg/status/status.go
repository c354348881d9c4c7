// Package status defines the evaluation state machine vocabulary and the
// StatusResult produced by every process evaluation: the seven workflow
// states, typed remediation actions, and the result envelope callers render
// or inspect.
package status

import (
	"time"
)

// State is one of the seven workflow evaluation states.
type State string

const (
	// StateScoping means no stage could be determined (entry state, also
	// the fallback for evaluation faults).
	StateScoping State = "scoping"
	// StateFulfilling means the current stage's requirements are not met.
	StateFulfilling State = "fulfilling"
	// StateQualifying means the current stage passed and the next stage is
	// being considered. Internal to the advance walk; visible in history.
	StateQualifying State = "qualifying"
	// StateAwaiting means the stage passed but progression is blocked.
	StateAwaiting State = "awaiting"
	// StateAdvancing means the element moved into the next stage. Internal
	// to the advance walk; visible in history.
	StateAdvancing State = "advancing"
	// StateRegressing means the element lost a previously held stage.
	StateRegressing State = "regressing"
	// StateCompleted means the final stage passed (terminal).
	StateCompleted State = "completed"
)

// States returns every evaluation state in declaration order.
func States() []State {
	return []State{
		StateScoping, StateFulfilling, StateQualifying, StateAwaiting,
		StateAdvancing, StateRegressing, StateCompleted,
	}
}

// IsTerminal reports whether the state ends the workflow.
func (s State) IsTerminal() bool {
	return s == StateCompleted
}

// validTransitions enumerates the state pairs a well-behaved workflow may
// produce across consecutive evaluations.
var validTransitions = map[State][]State{
	StateScoping:    {StateFulfilling, StateScoping},
	StateFulfilling: {StateQualifying, StateAwaiting, StateRegressing, StateFulfilling},
	StateQualifying: {StateAdvancing, StateAwaiting, StateRegressing},
	StateAwaiting:   {StateAdvancing, StateRegressing, StateFulfilling},
	StateAdvancing:  {StateCompleted, StateFulfilling},
	StateRegressing: {StateFulfilling, StateScoping},
	StateCompleted:  {},
}

// ValidTransition reports whether moving from one state to another is part
// of the expected state machine. It is advisory: evaluation records every
// transition it actually takes.
func ValidTransition(from, to State) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ActionType classifies a remediation action.
type ActionType string

const (
	// ActionCompleteField asks the caller to fill in missing or invalid data.
	ActionCompleteField ActionType = "complete_field"
	// ActionValidateData asks the caller to re-check existing data.
	ActionValidateData ActionType = "validate_data"
	// ActionWaitForCondition tells the caller progression is blocked.
	ActionWaitForCondition ActionType = "wait_for_condition"
	// ActionTransitionStage reports a stage movement.
	ActionTransitionStage ActionType = "transition_stage"
	// ActionManualReview escalates to a human.
	ActionManualReview ActionType = "manual_review"
)

// Priority orders actions by urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Action is one remediation step attached to a StatusResult.
type Action struct {
	Type        ActionType     `json:"type" yaml:"type"`
	Description string         `json:"description" yaml:"description"`
	Priority    Priority       `json:"priority" yaml:"priority"`
	Conditions  []string       `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ToMap converts the action to a plain nested map.
func (a Action) ToMap() map[string]any {
	m := map[string]any{
		"type":        string(a.Type),
		"description": a.Description,
		"priority":    string(a.Priority),
	}
	if len(a.Conditions) > 0 {
		m["conditions"] = a.Conditions
	}
	if len(a.Metadata) > 0 {
		m["metadata"] = a.Metadata
	}
	return m
}

// StatusResult is the outcome of one process evaluation.
type StatusResult struct {
	State         State          `json:"state" yaml:"state"`
	ElementID     string         `json:"element_id" yaml:"element_id"`
	CurrentStage  string         `json:"current_stage,omitempty" yaml:"current_stage,omitempty"`
	PreviousStage string         `json:"previous_stage,omitempty" yaml:"previous_stage,omitempty"`
	ProposedStage string         `json:"proposed_stage,omitempty" yaml:"proposed_stage,omitempty"`
	Actions       []Action       `json:"actions,omitempty" yaml:"actions,omitempty"`
	Errors        []string       `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings      []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Timestamp     time.Time      `json:"timestamp" yaml:"timestamp"`
}

// NewResult creates a StatusResult with the timestamp set and the proposed
// stage defaulted to the current stage for the states where the element
// stays put (fulfilling, qualifying, awaiting).
func NewResult(state State, elementID string) *StatusResult {
	return &StatusResult{
		State:     state,
		ElementID: elementID,
		Timestamp: time.Now().UTC(),
	}
}

// WithStage sets the current stage and applies the proposed-stage default.
func (r *StatusResult) WithStage(stage string) *StatusResult {
	r.CurrentStage = stage
	switch r.State {
	case StateFulfilling, StateQualifying, StateAwaiting:
		if r.ProposedStage == "" {
			r.ProposedStage = stage
		}
	}
	return r
}

// AddAction appends a remediation action.
func (r *StatusResult) AddAction(a Action) *StatusResult {
	r.Actions = append(r.Actions, a)
	return r
}

// AddError appends an error message.
func (r *StatusResult) AddError(msg string) *StatusResult {
	r.Errors = append(r.Errors, msg)
	return r
}

// AddWarning appends a warning message.
func (r *StatusResult) AddWarning(msg string) *StatusResult {
	r.Warnings = append(r.Warnings, msg)
	return r
}

// SetMetadata stores a metadata entry, allocating the map on first use.
func (r *StatusResult) SetMetadata(key string, value any) *StatusResult {
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	r.Metadata[key] = value
	return r
}

// Passed reports whether the result represents a satisfied stage: terminal
// completion or a blocked-but-passing stage.
func (r *StatusResult) Passed() bool {
	return r.State == StateCompleted || r.State == StateAwaiting
}

// ToMap converts the result to a plain nested map for callers that render
// text, JSON, or YAML themselves.
func (r *StatusResult) ToMap() map[string]any {
	actions := make([]map[string]any, len(r.Actions))
	for i, a := range r.Actions {
		actions[i] = a.ToMap()
	}
	m := map[string]any{
		"state":      string(r.State),
		"element_id": r.ElementID,
		"actions":    actions,
		"timestamp":  r.Timestamp.Format(time.RFC3339Nano),
	}
	if r.CurrentStage != "" {
		m["current_stage"] = r.CurrentStage
	}
	if r.PreviousStage != "" {
		m["previous_stage"] = r.PreviousStage
	}
	if r.ProposedStage != "" {
		m["proposed_stage"] = r.ProposedStage
	}
	if len(r.Errors) > 0 {
		m["errors"] = r.Errors
	}
	if len(r.Warnings) > 0 {
		m["warnings"] = r.Warnings
	}
	if len(r.Metadata) > 0 {
		m["metadata"] = r.Metadata
	}
	return m
}
