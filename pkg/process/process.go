// Package process orders stages into a workflow and runs the seven-state
// evaluation machine over elements: SCOPING, FULFILLING, QUALIFYING,
// AWAITING, ADVANCING, REGRESSING, COMPLETED.
//
// Evaluation is total: it never panics and never returns an error. Faults
// fold into a SCOPING result carrying the fault text. Each evaluation
// appends to an in-memory, per-element history owned by the process.
package process

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/stagegate/stagegate/internal/log"
	"github.com/stagegate/stagegate/pkg/element"
	"github.com/stagegate/stagegate/pkg/errors"
	"github.com/stagegate/stagegate/pkg/gate"
	"github.com/stagegate/stagegate/pkg/stage"
	"github.com/stagegate/stagegate/pkg/status"
)

// Process is an ordered sequence of stages plus the evaluation state
// machine. The stage graph is immutable after construction; the validator
// registry and the history map are the only mutable state, each guarded
// independently.
type Process struct {
	name                string
	stages              []*stage.Stage
	order               []string
	index               map[string]int
	allowSkipping       bool
	regressionDetection bool
	validators          *gate.Registry
	logger              *slog.Logger

	mu        sync.Mutex
	histories map[string]*History
}

// Option configures a Process at construction.
type Option func(*Process)

// WithStageOrder overrides the declaration order of stages. The given names
// must match the stage set exactly.
func WithStageOrder(order []string) Option {
	return func(p *Process) { p.order = order }
}

// WithStageSkipping allows progression to jump over intermediate stages.
func WithStageSkipping() Option {
	return func(p *Process) { p.allowSkipping = true }
}

// WithRegressionDetection turns on regression checks: a re-evaluation that
// lands on an earlier stage than the element's recorded one produces a
// REGRESSING result instead of the stage's own outcome.
func WithRegressionDetection() Option {
	return func(p *Process) { p.regressionDetection = true }
}

// WithValidators supplies the custom validator registry consulted by custom
// locks. Without this option the process creates an empty registry.
func WithValidators(reg *gate.Registry) Option {
	return func(p *Process) { p.validators = reg }
}

// WithLogger attaches a structured logger. Without it the process is silent.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Process) { p.logger = logger }
}

// New builds a Process over the given stages. Names must be unique; an
// explicit stage order, when supplied, must cover exactly the stage set.
func New(name string, stages []*stage.Stage, opts ...Option) (*Process, error) {
	if name == "" {
		return nil, &errors.ValidationError{
			Field:   "name",
			Message: "process name cannot be empty",
		}
	}
	if len(stages) == 0 {
		return nil, &errors.ValidationError{
			Field:      "stages",
			Message:    fmt.Sprintf("process %q requires at least one stage", name),
			Suggestion: "Define the stages the workflow moves through",
		}
	}

	byName := make(map[string]*stage.Stage, len(stages))
	for _, st := range stages {
		if _, dup := byName[st.Name]; dup {
			return nil, &errors.ValidationError{
				Field:   "stages",
				Message: fmt.Sprintf("duplicate stage name %q in process %q", st.Name, name),
			}
		}
		byName[st.Name] = st
	}

	p := &Process{
		name:      name,
		stages:    stages,
		histories: make(map[string]*History),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.order == nil {
		p.order = make([]string, len(stages))
		for i, st := range stages {
			p.order[i] = st.Name
		}
	} else {
		if len(p.order) != len(stages) {
			return nil, &errors.ValidationError{
				Field:   "stage_order",
				Message: "stage order must name every stage exactly once",
			}
		}
		ordered := make([]*stage.Stage, len(p.order))
		for i, stageName := range p.order {
			st, ok := byName[stageName]
			if !ok {
				return nil, &errors.ValidationError{
					Field:   "stage_order",
					Message: fmt.Sprintf("stage order references unknown stage %q", stageName),
				}
			}
			ordered[i] = st
		}
		p.stages = ordered
	}

	p.index = make(map[string]int, len(p.order))
	for i, stageName := range p.order {
		p.index[stageName] = i
	}

	if p.validators == nil {
		p.validators = gate.NewRegistry()
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p.logger = log.WithComponent(p.logger, "process")

	return p, nil
}

// Name returns the process name.
func (p *Process) Name() string { return p.name }

// StageOrder returns a copy of the ordered stage names.
func (p *Process) StageOrder() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Stages returns the ordered stages. Callers must treat them as read-only.
func (p *Process) Stages() []*stage.Stage {
	out := make([]*stage.Stage, len(p.stages))
	copy(out, p.stages)
	return out
}

// Stage looks up a stage by name.
func (p *Process) Stage(name string) (*stage.Stage, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.stages[i], true
}

// NextStage returns the stage after the named one in process order, or nil
// when the named stage is last or unknown.
func (p *Process) NextStage(name string) *stage.Stage {
	i, ok := p.index[name]
	if !ok || i >= len(p.stages)-1 {
		return nil
	}
	return p.stages[i+1]
}

// Validators returns the process's custom validator registry.
func (p *Process) Validators() *gate.Registry { return p.validators }

// AllowsStageSkipping reports whether progression may jump stages.
func (p *Process) AllowsStageSkipping() bool { return p.allowSkipping }

// CanTransition reports whether the process permits moving from one stage
// directly to another: the immediate successor, or anything when skipping
// is allowed.
func (p *Process) CanTransition(from, to string) bool {
	fromIdx, okFrom := p.index[from]
	toIdx, okTo := p.index[to]
	if !okFrom || !okTo {
		return false
	}
	if p.allowSkipping {
		return true
	}
	return toIdx == fromIdx+1
}

// ValidateStageProgression checks whether an element may move between two
// stages and returns the blocking conditions when it may not.
func (p *Process) ValidateStageProgression(el element.Element, from, to string) (bool, []string) {
	var reasons []string
	if !p.CanTransition(from, to) {
		reasons = append(reasons, fmt.Sprintf("Direct transition from '%s' to '%s' not allowed", from, to))
	}
	if target, ok := p.Stage(to); ok && !target.IsCompatibleWithElement(el) {
		reasons = append(reasons, fmt.Sprintf("Element does not meet requirements for stage '%s'", to))
	}
	return len(reasons) == 0, reasons
}

// Evaluate runs the state machine for one element. knownStage, when
// non-empty, pins the starting stage; otherwise the element is scoped to
// the compatible stage with the highest completion.
//
// The advance walk is a bounded loop over the stage sequence: a passing
// stage whose successor is reachable moves the element forward, recording
// QUALIFYING and ADVANCING transitions in history; the walk ends in
// FULFILLING, AWAITING, or COMPLETED. Any panic is converted into a SCOPING
// result carrying the fault text.
func (p *Process) Evaluate(el element.Element, knownStage string) (res *status.StatusResult) {
	// The recover guard is installed before any access to the element, so
	// even a panicking id property folds into a SCOPING result.
	var elementID string

	defer func() {
		if r := recover(); r != nil {
			res = status.NewResult(status.StateScoping, elementID)
			res.AddError(fmt.Sprintf("Evaluation error: %v", r))
			res.AddAction(status.Action{
				Type:        status.ActionManualReview,
				Description: "Process evaluation failed",
				Priority:    status.PriorityCritical,
				Metadata:    map[string]any{"error": fmt.Sprintf("%v", r)},
			})
			p.record(res, "evaluation fault")
		}
		p.logger.Debug("evaluation finished",
			log.String(log.ElementIDKey, elementID),
			log.String(log.StateKey, string(res.State)),
			log.String(log.StageKey, res.CurrentStage),
		)
	}()

	elementID = p.elementID(el)

	current, scopeRes := p.scope(el, elementID, knownStage)
	if scopeRes != nil {
		p.record(scopeRes, "scoping failed")
		return scopeRes
	}

	// Bounded walk: NextStage strictly increases the stage index, so the
	// loop ends within the stage count even before the guard trips.
	for hops := 0; hops <= len(p.stages); hops++ {
		sr := current.Evaluate(el, p.validators)

		if !sr.OverallPassed {
			res = p.fulfillingResult(el, elementID, current, &sr)
			res = p.applyRegression(res, elementID)
			p.record(res, fmt.Sprintf("stage '%s' requirements not met", current.Name))
			return res
		}

		next := p.NextStage(current.Name)
		if next == nil {
			res = p.completedResult(el, elementID, current)
			p.record(res, fmt.Sprintf("final stage '%s' passed", current.Name))
			return res
		}

		p.recordTransition(elementID, status.StateQualifying, current.Name,
			fmt.Sprintf("stage '%s' passed, qualifying for '%s'", current.Name, next.Name), nil)

		ok, blockers := p.ValidateStageProgression(el, current.Name, next.Name)
		if !ok {
			res = p.awaitingResult(el, elementID, current, next, blockers)
			res = p.applyRegression(res, elementID)
			p.record(res, fmt.Sprintf("progression to '%s' blocked", next.Name))
			return res
		}

		p.recordTransition(elementID, status.StateAdvancing, next.Name,
			fmt.Sprintf("advancing from '%s' to '%s'", current.Name, next.Name), nil)
		current = next
	}

	// Unreachable with a consistent index map; kept as a configuration
	// cycle guard.
	res = status.NewResult(status.StateScoping, elementID)
	res.AddError(fmt.Sprintf("Evaluation error: stage walk exceeded %d stages", len(p.stages)))
	p.record(res, "stage walk guard tripped")
	return res
}

// EvaluateBatch evaluates each element in turn without a known stage.
func (p *Process) EvaluateBatch(els []element.Element) []*status.StatusResult {
	results := make([]*status.StatusResult, len(els))
	for i, el := range els {
		results[i] = p.Evaluate(el, "")
	}
	return results
}

// scope resolves the starting stage. It returns a terminal SCOPING result
// when no stage can be determined.
func (p *Process) scope(el element.Element, elementID, knownStage string) (*stage.Stage, *status.StatusResult) {
	if knownStage != "" {
		st, ok := p.Stage(knownStage)
		if !ok {
			res := status.NewResult(status.StateScoping, elementID)
			res.AddError(fmt.Sprintf("Stage '%s' not found in process", knownStage))
			res.AddAction(status.Action{
				Type:        status.ActionManualReview,
				Description: fmt.Sprintf("Invalid current stage: %s", knownStage),
				Priority:    status.PriorityHigh,
			})
			return nil, res
		}
		return st, nil
	}

	var compatible []*stage.Stage
	for _, st := range p.stages {
		if st.IsCompatibleWithElement(el) {
			compatible = append(compatible, st)
		}
	}

	if len(compatible) == 0 {
		res := status.NewResult(status.StateScoping, elementID)
		res.AddError("Element lacks required properties for any stage")
		res.AddAction(status.Action{
			Type:        status.ActionCompleteField,
			Description: "Ensure element has required properties for at least one stage",
			Priority:    status.PriorityHigh,
		})
		return nil, res
	}

	best := compatible[0]
	if len(compatible) > 1 {
		bestScore := best.CompletionFraction(el, p.validators)
		for _, st := range compatible[1:] {
			// Strict comparison keeps declaration order on ties.
			if score := st.CompletionFraction(el, p.validators); score > bestScore {
				best, bestScore = st, score
			}
		}
	}
	return best, nil
}

// fulfillingResult builds the FULFILLING outcome for a failed stage.
func (p *Process) fulfillingResult(el element.Element, elementID string, st *stage.Stage, sr *stage.Result) *status.StatusResult {
	res := status.NewResult(status.StateFulfilling, elementID).WithStage(st.Name)
	res.SetMetadata("completion", sr.Completion)

	actions := st.ResolveActionsForState(status.StateFulfilling, el, map[string]any{
		"completion": sr.Completion,
	})
	if len(actions) == 0 {
		for _, remedy := range sr.Actions {
			actions = append(actions, status.Action{
				Type:        status.ActionCompleteField,
				Description: remedy,
				Priority:    status.PriorityNormal,
			})
		}
	}
	for _, a := range actions {
		res.AddAction(a)
	}
	for _, msg := range sr.SchemaErrors {
		res.AddWarning(msg)
	}
	return res
}

// awaitingResult builds the AWAITING outcome for a passing stage whose
// progression is blocked.
func (p *Process) awaitingResult(el element.Element, elementID string, st, next *stage.Stage, blockers []string) *status.StatusResult {
	res := status.NewResult(status.StateAwaiting, elementID).WithStage(st.Name)
	res.SetMetadata("next_stage", next.Name)

	actions := st.ResolveActionsForState(status.StateAwaiting, el, map[string]any{
		"next_stage": next.Name,
	})
	if len(actions) == 0 {
		for _, blocker := range blockers {
			actions = append(actions, status.Action{
				Type:        status.ActionWaitForCondition,
				Description: blocker,
				Priority:    status.PriorityNormal,
			})
		}
	}
	for _, a := range actions {
		res.AddAction(a)
	}
	return res
}

// completedResult builds the terminal COMPLETED outcome. The current stage
// is cleared; the final stage travels in metadata.
func (p *Process) completedResult(el element.Element, elementID string, final *stage.Stage) *status.StatusResult {
	res := status.NewResult(status.StateCompleted, elementID)
	res.SetMetadata("final_stage", final.Name)

	actions := final.ResolveActionsForState(status.StateCompleted, el, map[string]any{
		"final_stage": final.Name,
	})
	if len(actions) == 0 {
		actions = []status.Action{{
			Type:        status.ActionTransitionStage,
			Description: "Process completed successfully",
			Priority:    status.PriorityNormal,
		}}
	}
	for _, a := range actions {
		res.AddAction(a)
	}
	return res
}

// applyRegression rewrites a result as REGRESSING when regression detection
// is on and the element's recorded stage sits later in the order than the
// stage this evaluation landed on.
func (p *Process) applyRegression(res *status.StatusResult, elementID string) *status.StatusResult {
	if !p.regressionDetection || res.CurrentStage == "" {
		return res
	}

	p.mu.Lock()
	h, ok := p.histories[elementID]
	var recorded string
	if ok {
		recorded = h.CurrentStage
	}
	p.mu.Unlock()

	if recorded == "" || recorded == res.CurrentStage {
		return res
	}
	recordedIdx, okRecorded := p.index[recorded]
	landedIdx, okLanded := p.index[res.CurrentStage]
	if !okRecorded || !okLanded || recordedIdx <= landedIdx {
		return res
	}

	reg := status.NewResult(status.StateRegressing, elementID)
	reg.CurrentStage = recorded
	reg.PreviousStage = recorded
	reg.ProposedStage = res.CurrentStage
	reg.Actions = res.Actions
	reg.Errors = res.Errors
	reg.AddWarning(fmt.Sprintf("Element no longer satisfies stage '%s'", recorded))
	reg.AddAction(status.Action{
		Type:        status.ActionValidateData,
		Description: fmt.Sprintf("Re-check data required by stage '%s'", recorded),
		Priority:    status.PriorityHigh,
	})
	reg.SetMetadata("from_stage", recorded)
	reg.SetMetadata("to_stage", res.CurrentStage)
	return reg
}

// elementID derives a stable identity for an element: its id property when
// present, otherwise a content-derived UUID over the canonicalized record.
func (p *Process) elementID(el element.Element) string {
	if v, ok := el.GetProperty("id"); ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	data, err := json.Marshal(el.ToMap())
	if err != nil {
		data = []byte(fmt.Sprintf("%v", el.ToMap()))
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, data).String()
}

// record appends the final transition of an evaluation to the element's
// history, creating the history on first contact.
func (p *Process) record(res *status.StatusResult, reason string) {
	stageName := res.CurrentStage
	if stageName == "" {
		if final, ok := res.Metadata["final_stage"].(string); ok {
			stageName = final
		}
	}
	p.recordTransition(res.ElementID, res.State, stageName, reason, res.Metadata)

	p.mu.Lock()
	if h, ok := p.histories[res.ElementID]; ok {
		h.EvaluationCount++
	}
	p.mu.Unlock()
}

// recordTransition appends one transition to the element's history.
func (p *Process) recordTransition(elementID string, to status.State, stageName, reason string, metadata map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.histories[elementID]
	if !ok {
		h = &History{
			ElementID: elementID,
			Created:   nowUTC(),
		}
		p.histories[elementID] = h
	}

	h.Transitions = append(h.Transitions, Transition{
		Timestamp: nowUTC(),
		FromState: h.LastState(),
		ToState:   to,
		Stage:     stageName,
		Reason:    reason,
		Metadata:  metadata,
	})
	if stageName != "" {
		h.CurrentStage = stageName
	}
}

// History returns a copy of the element's recorded history.
func (p *Process) History(elementID string) (*History, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.histories[elementID]
	if !ok {
		return nil, false
	}
	return h.clone(), true
}

// ClearHistory removes the recorded history for one element id.
func (p *Process) ClearHistory(elementID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.histories, elementID)
}

// ClearHistories removes every recorded history.
func (p *Process) ClearHistories() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.histories = make(map[string]*History)
}
